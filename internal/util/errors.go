package util

import "errors"

var (
	ErrEmailRegistered   = errors.New("email already registered")
	ErrInvalidPassword   = errors.New("invalid email or password")
	ErrTestNotFound      = errors.New("test not found")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrOptionMismatch    = errors.New("option does not belong to question")
	ErrTestSubmitted     = errors.New("test already submitted")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrNoActiveSession   = errors.New("no active session for test")
)
