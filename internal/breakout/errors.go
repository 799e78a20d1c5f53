package breakout

import "errors"

var (
	ErrMissingURL = errors.New("url parameter is required")
	ErrInvalidURL = errors.New("invalid url")
)
