package simulator

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// InterviewQuestion is a practice question with a model answer.
type InterviewQuestion struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// InterviewRole is a job role and the GA4 questions it is likely to face.
type InterviewRole struct {
	ID          string              `yaml:"id" json:"id"`
	Title       string              `yaml:"title" json:"title"`
	Description string              `yaml:"description" json:"description"`
	WhyGA4      string              `yaml:"whyGa4" json:"whyGa4"`
	Questions   []InterviewQuestion `yaml:"questions" json:"questions"`
}

// InterviewRoles returns the built-in interview guides.
func InterviewRoles() []InterviewRole {
	var file struct {
		Roles []InterviewRole `yaml:"roles"`
	}
	if err := yaml.Unmarshal(interviewYAML, &file); err != nil {
		panic(fmt.Sprintf("built-in interview guide is invalid: %v", err))
	}
	return file.Roles
}

// FindRole returns the role with the given id.
func FindRole(id string) (InterviewRole, bool) {
	for _, r := range InterviewRoles() {
		if r.ID == id {
			return r, true
		}
	}
	return InterviewRole{}, false
}
