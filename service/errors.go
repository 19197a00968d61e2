package service

import "errors"

var (
	// ErrEmptyTemplate rejects requests with nothing to build.
	ErrEmptyTemplate = errors.New("template is empty")
	ErrNoLibrary     = errors.New("snippet library not configured")
)
