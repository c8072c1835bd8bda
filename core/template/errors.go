package template

import "errors"

var (
	ErrNotFound        = errors.New("template not found")
	ErrDuplicateSlug   = errors.New("a template with this slug already exists")
	ErrProtectedRecord = errors.New("template is protected and cannot be deleted")
	ErrInactive        = errors.New("template is inactive")
)
