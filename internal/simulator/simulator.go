// Package simulator serves the read-only mock GA4 screens and interview guides.
//
// Screens are keyed by (page, subPage). Every coordinate resolves to something
// renderable: unbuilt or unknown coordinates get the placeholder screen.
package simulator

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed screens.yaml
var screensYAML []byte

//go:embed interview.yaml
var interviewYAML []byte

// DefaultReportsSubPage is shown when a redirect targets reports without a sub page.
const DefaultReportsSubPage = "snapshot"

// Metric is a headline number on a panel.
type Metric struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
	Delta string `yaml:"delta,omitempty" json:"delta,omitempty"`
}

// Row is one labelled line of a panel table.
type Row struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Panel is one card on a screen.
type Panel struct {
	Title   string   `yaml:"title" json:"title"`
	Metrics []Metric `yaml:"metrics,omitempty" json:"metrics,omitempty"`
	Rows    []Row    `yaml:"rows,omitempty" json:"rows,omitempty"`
	Note    string   `yaml:"note,omitempty" json:"note,omitempty"`
}

// Screen is one mock page of the analytics product.
type Screen struct {
	Page        string  `yaml:"page" json:"page"`
	SubPage     string  `yaml:"subPage,omitempty" json:"subPage,omitempty"`
	Title       string  `yaml:"title" json:"title"`
	Subtitle    string  `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Note        string  `yaml:"note,omitempty" json:"note,omitempty"`
	Panels      []Panel `yaml:"panels,omitempty" json:"panels,omitempty"`
	Placeholder bool    `yaml:"-" json:"placeholder"`
}

// NavItem is one entry of the simulator's navigation rail.
type NavItem struct {
	Page    string `yaml:"page" json:"page"`
	SubPage string `yaml:"subPage,omitempty" json:"subPage,omitempty"`
	Group   string `yaml:"group,omitempty" json:"group,omitempty"`
	Topic   string `yaml:"topic,omitempty" json:"topic,omitempty"`
	Label   string `yaml:"label" json:"label"`
	Built   bool   `yaml:"-" json:"built"`
}

// MalformedRedirect reports a coordinate the fixture does not know.
type MalformedRedirect struct {
	Page    string
	SubPage string
}

func (e *MalformedRedirect) Error() string {
	if e.SubPage == "" {
		return fmt.Sprintf("unknown simulator page %q", e.Page)
	}
	return fmt.Sprintf("unknown simulator coordinate %q/%q", e.Page, e.SubPage)
}

type fixtureFile struct {
	Placeholder Screen    `yaml:"placeholder"`
	Screens     []Screen  `yaml:"screens"`
	Navigation  []NavItem `yaml:"navigation"`
}

// Fixture holds the mock screens.
type Fixture struct {
	placeholder Screen
	screens     map[string]Screen
	nav         []NavItem
	pages       map[string]string
}

// Load returns the built-in fixture.
func Load() *Fixture {
	f, err := Parse(screensYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in simulator fixture is invalid: %v", err))
	}
	return f
}

// Parse decodes a fixture from YAML.
func Parse(data []byte) (*Fixture, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode simulator fixture: %w", err)
	}
	if file.Placeholder.Title == "" {
		return nil, fmt.Errorf("simulator fixture has no placeholder screen")
	}
	f := &Fixture{
		placeholder: file.Placeholder,
		screens:     make(map[string]Screen, len(file.Screens)),
		pages:       make(map[string]string),
	}
	f.placeholder.Placeholder = true
	for _, s := range file.Screens {
		key := coordinateKey(s.Page, s.SubPage)
		if _, dup := f.screens[key]; dup {
			return nil, fmt.Errorf("duplicate screen %s", key)
		}
		f.screens[key] = s
	}
	for _, item := range file.Navigation {
		_, item.Built = f.screens[coordinateKey(item.Page, item.SubPage)]
		f.nav = append(f.nav, item)
		if item.SubPage == "" || f.pages[item.Page] == "" {
			f.pages[item.Page] = pageLabel(item)
		}
	}
	return f, nil
}

func pageLabel(item NavItem) string {
	if item.SubPage == "" {
		return item.Label
	}
	return strings.ToUpper(item.Page[:1]) + item.Page[1:]
}

func coordinateKey(page, sub string) string {
	if sub == "" {
		return page
	}
	return page + "/" + sub
}

// Resolve returns the screen for a coordinate. A known but unbuilt coordinate
// returns the placeholder with a nil error; an unknown one returns the
// placeholder together with a *MalformedRedirect.
func (f *Fixture) Resolve(page, subPage string) (Screen, error) {
	page = strings.ToLower(strings.TrimSpace(page))
	subPage = strings.ToLower(strings.TrimSpace(subPage))
	if page == "reports" && subPage == "" {
		subPage = DefaultReportsSubPage
	}

	if s, ok := f.screens[coordinateKey(page, subPage)]; ok {
		return s, nil
	}

	ph := f.placeholderFor(page, subPage)
	if f.isKnown(page, subPage) {
		slog.Debug("Fixture.Resolve: coordinate not built, using placeholder", "page", page, "subPage", subPage)
		return ph, nil
	}
	err := &MalformedRedirect{Page: page, SubPage: subPage}
	slog.Warn("Fixture.Resolve: unknown coordinate, using placeholder", "page", page, "subPage", subPage)
	return ph, err
}

func (f *Fixture) isKnown(page, subPage string) bool {
	for _, item := range f.nav {
		if item.Page == page && item.SubPage == subPage {
			return true
		}
	}
	return false
}

func (f *Fixture) placeholderFor(page, subPage string) Screen {
	ph := f.placeholder
	ph.Page = page
	ph.SubPage = subPage
	if label, ok := f.pages[page]; ok {
		ph.Title = f.placeholder.Title + ": " + label
	}
	return ph
}

// Navigation returns the navigation catalogue in display order.
func (f *Fixture) Navigation() []NavItem {
	return append([]NavItem(nil), f.nav...)
}

// Screens returns every built screen in navigation order.
func (f *Fixture) Screens() []Screen {
	out := make([]Screen, 0, len(f.screens))
	for _, item := range f.nav {
		if s, ok := f.screens[coordinateKey(item.Page, item.SubPage)]; ok {
			out = append(out, s)
		}
	}
	return out
}
