package team

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidTeamAssignment = errors.New("invalid team assignment")
	ErrInvalidBucketTable    = errors.New("invalid bucket table")
)
