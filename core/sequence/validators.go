package sequence

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mailroom/core"
)

var (
	exclusiveContentTag  = "exclusive_content"
	exclusiveContentText = "an entry either references a template or carries inline copy, not both"

	inlineContentTag  = "inline_content"
	inlineContentText = "inline entries need both a subject and a body"
)

// register custom validators
func init() {
	core.Validate.RegisterStructValidation(entryStructLevelValidation, Entry{})
	core.RegisterCustomTranslation(exclusiveContentTag, exclusiveContentText)
	core.RegisterCustomTranslation(inlineContentTag, inlineContentText)
}

// entryStructLevelValidation makes sure an Entry has exactly one kind of content.
func entryStructLevelValidation(sl validator.StructLevel) {
	e := sl.Current().Interface().(Entry)
	hasInline := strings.TrimSpace(e.Subject) != "" || strings.TrimSpace(e.Body) != ""

	switch {
	case e.IsReference() && hasInline:
		sl.ReportError(e.TemplateSlug, "template_slug", "TemplateSlug", exclusiveContentTag, "")
	case !e.IsReference() && (strings.TrimSpace(e.Subject) == "" || strings.TrimSpace(e.Body) == ""):
		sl.ReportError(e.Body, "body", "Body", inlineContentTag, "")
	}
}
