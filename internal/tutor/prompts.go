package tutor

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/MicroTutor/internal/models"
)

// SystemInstruction is the standing brief sent at the top of every generation.
const SystemInstruction = `You are the GA4 Micro-Tutor, a patient instructor helping analysts move from Universal Analytics (UA) to Google Analytics 4 (GA4).

Teach in small steps:
- Each reply is one micro-lesson of 3 to 6 sentences in microLessonText. microLessonText must never be empty.
- Plain text only. Do not use markdown such as ** or #. Separate paragraphs and list items with \n. Start list items with "- ".
- When contrasting UA and GA4, fill the comparison object with a title, column labels and at least one row.
- Use exampleTitle and exampleContent for a short concrete illustration when it helps.
- Offer practice through practiceTask with 2 to 4 short taskOptions the learner can click.
- For hands-on exploration send simulationRedirect with page (home, reports, explore, advertising, admin), an optional subPage (for reports: snapshot, realtime) and a message. Whenever simulationRedirect is present you MUST also send practiceTask and taskOptions. For a plain "find it" task use taskOptions such as "I found it" and "Continue".
- When the learner's last message correctly answers your previous quiz or task, open with a short positive acknowledgement before moving on. When it is wrong, explain gently and ask again.
- When the learner says "Let's go", "Ready" or "Continue", move to the next step of the plan.
- When the module plan defines a quiz sequence, ask exactly one question per reply using the quiz object, and do not move to the next question until the current one has been answered correctly.
- The opening reply of a module introduces the topic and never contains a quiz.

Reply with a single JSON object matching the provided schema and nothing else.`

// BuildSystemPrompt returns the system instruction with the module focus appended when a module is active.
func BuildSystemPrompt(module *models.Module) string {
	if module == nil || strings.TrimSpace(module.TeachingPlan) == "" {
		return SystemInstruction
	}
	return SystemInstruction + "\n\nCURRENT MODULE FOCUS:\n" + strings.TrimSpace(module.TeachingPlan)
}

// StartPrompt is the synthetic input that opens a module.
func StartPrompt(module models.Module) string {
	return fmt.Sprintf("Start teaching %s. Follow the plan: %s", module.Title, strings.TrimSpace(module.TeachingPlan))
}

// CursorContext describes the learner's position in a module's quiz sequence.
// It returns "" when the module has no fixed sequence.
func CursorContext(module *models.Module, cursor models.Cursor, lastAnswerCorrect bool) string {
	if module == nil || module.QuizLength <= 0 || cursor.ModuleID != module.ID {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "QUIZ SEQUENCE STATE: module %s has %d questions. ", module.ID, module.QuizLength)
	if cursor.StepIndex >= module.QuizLength {
		b.WriteString("All questions have been answered correctly. Congratulate the learner and suggest the next module.")
		return b.String()
	}
	fmt.Fprintf(&b, "%d answered correctly so far. ", cursor.StepIndex)
	if lastAnswerCorrect {
		fmt.Fprintf(&b, "The learner just answered correctly; acknowledge it and ask question %d.", cursor.StepIndex+1)
	} else {
		fmt.Fprintf(&b, "If a question is open, keep asking question %d until it is answered correctly.", cursor.StepIndex+1)
	}
	return b.String()
}
