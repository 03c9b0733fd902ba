package importer

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrBadHeader    = errors.New("csv header must contain name, email and team")
	ErrRejected     = errors.New("webhook rejected message")
)
