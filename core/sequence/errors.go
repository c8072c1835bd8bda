package sequence

import "errors"

var (
	ErrNotFound      = errors.New("sequence not found")
	ErrDuplicateName = errors.New("a sequence with this name is already registered")
)
