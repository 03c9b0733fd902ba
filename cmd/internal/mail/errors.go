package mail

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDelivery     = errors.New("mail delivery failed")
	ErrClosed       = errors.New("mail dispatcher closed")
)
