// Package curriculum loads the static, ordered list of learning modules.
package curriculum

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BTreeMap/MicroTutor/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed modules.yaml
var builtinModules []byte

// Catalog is the read-only set of modules plus the session greeting.
type Catalog struct {
	Greeting models.LessonContent `yaml:"greeting"`
	Modules  []models.Module      `yaml:"modules"`

	byID map[string]int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(builtinModules)
	if err != nil {
		panic(fmt.Sprintf("built-in curriculum is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		slog.Debug("Curriculum.Load: using built-in modules")
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum file %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid curriculum file %s: %w", path, err)
	}
	slog.Info("Curriculum.Load: loaded modules", "path", path, "count", len(c.Modules))
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode curriculum: %w", err)
	}
	if len(c.Modules) == 0 {
		return nil, fmt.Errorf("curriculum has no modules")
	}
	c.Greeting.Normalize()
	if err := c.Greeting.Validate(); err != nil {
		return nil, fmt.Errorf("invalid greeting: %w", err)
	}
	c.byID = make(map[string]int, len(c.Modules))
	for i, m := range c.Modules {
		if strings.TrimSpace(m.ID) == "" || strings.TrimSpace(m.Title) == "" {
			return nil, fmt.Errorf("module %d needs an id and a title", i)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate module id %q", m.ID)
		}
		if m.QuizLength < 0 {
			return nil, fmt.Errorf("module %q has negative quizLength", m.ID)
		}
		c.byID[m.ID] = i
	}
	return &c, nil
}

// Get returns a copy of the module with the given id.
func (c *Catalog) Get(id string) (models.Module, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Module{}, fmt.Errorf("%w: %s", models.ErrUnknownModule, id)
	}
	return c.Modules[i], nil
}

// List returns the modules in curriculum order.
func (c *Catalog) List() []models.Module {
	return append([]models.Module(nil), c.Modules...)
}

// Welcome returns the greeting that opens every session.
func (c *Catalog) Welcome() models.LessonContent {
	return *c.Greeting.Clone()
}
