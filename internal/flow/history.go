package flow

import (
	"github.com/BTreeMap/MicroTutor/internal/models"
)

// AppendTurn returns a new history with turn added at the end. The input slice
// is never written to, so snapshots taken earlier stay valid.
func AppendTurn(history []models.Turn, turn models.Turn) []models.Turn {
	out := make([]models.Turn, len(history), len(history)+1)
	copy(out, history)
	return append(out, turn)
}

// LatestTutorQuiz returns the quiz on the most recent tutor turn, or nil when
// that turn has none.
func LatestTutorQuiz(history []models.Turn) *models.Quiz {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].IsTutor() {
			return history[i].Lesson.Quiz
		}
	}
	return nil
}
