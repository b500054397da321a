package tutor

import "github.com/BTreeMap/MicroTutor/internal/genai"

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

// LessonSchema is the JSON schema the collaborator is asked to follow.
var LessonSchema = &genai.ResponseSchema{
	Name:        "lesson_content",
	Description: "One structured GA4 micro-lesson turn",
	Strict:      false,
	Schema: map[string]any{
		"type":     "object",
		"required": []string{"microLessonText"},
		"properties": map[string]any{
			"microLessonText": stringProp("The lesson text, 3 to 6 sentences, paragraphs separated by \\n, no markdown."),
			"exampleTitle":    stringProp("Title of an optional worked example."),
			"exampleContent":  stringProp("Body of the worked example."),
			"comparison": map[string]any{
				"type":     "object",
				"required": []string{"title", "leftLabel", "rightLabel", "rows"},
				"properties": map[string]any{
					"title":      stringProp("Table title."),
					"leftLabel":  stringProp("Left column label, usually Universal Analytics."),
					"rightLabel": stringProp("Right column label, usually GA4."),
					"rows": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type":     "object",
							"required": []string{"feature", "leftValue", "rightValue"},
							"properties": map[string]any{
								"feature":    stringProp("Feature being compared."),
								"leftValue":  stringProp("Value for the left column."),
								"rightValue": stringProp("Value for the right column."),
							},
						},
					},
					"insight": stringProp("One sentence takeaway."),
				},
			},
			"quiz": map[string]any{
				"type":     "object",
				"required": []string{"question", "options", "correctAnswerIndex"},
				"properties": map[string]any{
					"question": stringProp("The question."),
					"options": map[string]any{
						"type":     "array",
						"minItems": 2,
						"items":    map[string]any{"type": "string"},
					},
					"correctAnswerIndex": map[string]any{"type": "integer", "description": "0-based index into options."},
					"explanation":        stringProp("Shown after a correct answer."),
				},
			},
			"practiceTask": stringProp("A short task or question for the learner."),
			"taskOptions": map[string]any{
				"type":        "array",
				"description": "Clickable answers for practiceTask.",
				"items":       map[string]any{"type": "string"},
			},
			"simulationRedirect": map[string]any{
				"type":     "object",
				"required": []string{"page", "message"},
				"properties": map[string]any{
					"page":    map[string]any{"type": "string", "enum": []string{"home", "reports", "explore", "advertising", "admin"}},
					"subPage": stringProp("Report sub page such as snapshot or realtime."),
					"message": stringProp("Why the learner should open this screen."),
				},
			},
		},
	},
}
