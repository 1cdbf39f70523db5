package util

import "errors"

var (
	ErrAssessmentNotFound = errors.New("no active assessment for this level")
	ErrNoQuestions        = errors.New("assessment has no questions")
	ErrNoActiveAttempt    = errors.New("no placement attempt in progress")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrInvalidQuestion    = errors.New("invalid question")
	ErrInvalidAssessment  = errors.New("invalid assessment")
	ErrPermissionDenied   = errors.New("permission denied")
)
