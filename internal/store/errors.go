package store

import "errors"

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrDuplicateKey       = errors.New("already exists")
	ErrJobFinalized       = errors.New("job already reached a terminal state")
	ErrProgressRegression = errors.New("job progress cannot decrease")
	ErrInvalidProgress    = errors.New("job progress must be within [0, 1]")
)
