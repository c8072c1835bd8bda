package template

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mailroom/core"
)

var (
	slugTag   = "slug"
	slugText  = "only lowercase letters and digits, separated by single dashes or underscores, are allowed"
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

	categoryTag  = "category"
	categoryText = "invalid category"

	placeholderTag  = "placeholder"
	placeholderText = "placeholders must start with a letter or underscore and only contain letters, digits and underscores"
)

// register custom validators
func init() {
	_ = core.Validate.RegisterValidation(slugTag, slugValidation)
	core.RegisterCustomTranslation(slugTag, slugText)

	_ = core.Validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(categoryTag, categoryText)

	_ = core.Validate.RegisterValidation(placeholderTag, placeholderValidation)
	core.RegisterCustomTranslation(placeholderTag, placeholderText)
}

// IsSlug reports whether s is a well-formed slug.
func IsSlug(s string) bool {
	return slugRegex.MatchString(s)
}

// Custom Validators

func slugValidation(fl validator.FieldLevel) bool {
	return IsSlug(fl.Field().String())
}

// categoryValidation checks that the category is one of Categories
func categoryValidation(fl validator.FieldLevel) bool {
	return Category(fl.Field().String()).IsValid()
}

func placeholderValidation(fl validator.FieldLevel) bool {
	return IsPlaceholderName(fl.Field().String())
}
