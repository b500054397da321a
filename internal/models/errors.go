package models

import "errors"

// Lesson content validation errors.
var (
	ErrMissingLessonText    = errors.New("microLessonText is required")
	ErrEmptyComparisonRows  = errors.New("comparison must have at least one row")
	ErrEmptyQuizQuestion    = errors.New("quiz question is required")
	ErrTooFewQuizOptions    = errors.New("quiz needs at least two options")
	ErrQuizAnswerOutOfRange = errors.New("quiz correctAnswerIndex out of range")
	ErrRedirectMissingPage  = errors.New("simulationRedirect page is required")
	ErrRedirectWithoutTask  = errors.New("simulationRedirect requires practiceTask and taskOptions")
)

// Session and input boundary errors.
var (
	ErrEmptyInput           = errors.New("input text is empty")
	ErrGenerationInFlight   = errors.New("a tutor response is already being generated")
	ErrStaleReply           = errors.New("tutor reply belongs to a previous session epoch")
	ErrUnknownModule        = errors.New("unknown module")
	ErrUnknownTurn          = errors.New("unknown turn")
	ErrNotTutorTurn         = errors.New("turn is not a tutor turn")
	ErrNoTaskOptions        = errors.New("turn has no task options")
	ErrUnknownTaskOption    = errors.New("task option not offered by turn")
	ErrNoQuiz               = errors.New("turn has no quiz")
	ErrQuizOptionOutOfRange = errors.New("quiz option index out of range")
	ErrMissingQuizIndex     = errors.New("quiz answer index is required")
	ErrNoRedirect           = errors.New("turn has no simulation redirect")
	ErrInvalidView          = errors.New("invalid view")
	ErrSessionNotFound      = errors.New("session not found")
)
