package template

import (
	"time"

	"github.com/trezcool/mailroom/core"
)

// Category groups templates for display. It has no behavioral effect.
type Category string

const (
	CategoryAccount    Category = "ACCOUNT"
	CategoryOnboarding Category = "ONBOARDING"
	CategoryBilling    Category = "BILLING"
	CategoryEngagement Category = "ENGAGEMENT"
	CategoryResources  Category = "RESOURCES"
	CategoryMarketing  Category = "MARKETING"
)

var Categories = []Category{
	CategoryAccount,
	CategoryOnboarding,
	CategoryBilling,
	CategoryEngagement,
	CategoryResources,
	CategoryMarketing,
}

func (c Category) IsValid() bool {
	for _, cat := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

type Template struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     Category  `json:"category"`
	Subject      string    `json:"subject"`
	Preheader    string    `json:"preheader"`
	Body         string    `json:"body"`
	Placeholders []string  `json:"placeholders"`
	IsActive     bool      `json:"is_active"`
	IsSystem     bool      `json:"is_system"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Content returns the mergeable parts of the Template.
func (t Template) Content() Content {
	return Content{Subject: t.Subject, Preheader: t.Preheader, Body: t.Body}
}

// NewTemplate contains information needed to create (or upsert) a Template.
type NewTemplate struct {
	Slug         string   `json:"slug" yaml:"slug" validate:"required,max=100,slug"`
	Name         string   `json:"name" yaml:"name" validate:"required,notblank,max=200"`
	Description  string   `json:"description" yaml:"description"`
	Category     Category `json:"category" yaml:"category" validate:"required,category"`
	Subject      string   `json:"subject" yaml:"subject" validate:"required,notblank,max=998"`
	Preheader    string   `json:"preheader" yaml:"preheader" validate:"max=255"`
	Body         string   `json:"body" yaml:"body"`
	Placeholders []string `json:"placeholders" yaml:"placeholders" validate:"omitempty,dive,placeholder"`
	IsActive     *bool    `json:"is_active" yaml:"is_active"`
	IsSystem     *bool    `json:"is_system" yaml:"is_system"`
}

func (nt *NewTemplate) Clean() {
	nt.Slug = core.CleanString(nt.Slug, true /* lower */)
	nt.Name = core.CleanString(nt.Name)
	nt.Description = core.CleanString(nt.Description)
	nt.Category = Category(core.CleanString(string(nt.Category)))
	nt.Subject = core.CleanString(nt.Subject)
	nt.Preheader = core.CleanString(nt.Preheader)
	nt.Placeholders = cleanPlaceholders(nt.Placeholders)
}

func (nt *NewTemplate) Validate() error {
	nt.Clean()
	return core.Validate.Struct(nt)
}

// UpdateTemplate defines what information may be provided to modify an existing Template.
// The slug is never editable.
type UpdateTemplate struct {
	Name         *string   `json:"name" validate:"omitempty,notblank,max=200"`
	Description  *string   `json:"description"`
	Category     *Category `json:"category" validate:"omitempty,category"`
	Subject      *string   `json:"subject" validate:"omitempty,notblank,max=998"`
	Preheader    *string   `json:"preheader" validate:"omitempty,max=255"`
	Body         *string   `json:"body"`
	Placeholders []string  `json:"placeholders" validate:"omitempty,dive,placeholder"`
	IsActive     *bool     `json:"is_active"`
}

func (ut *UpdateTemplate) Validate() error {
	if ut.Placeholders != nil {
		ut.Placeholders = cleanPlaceholders(ut.Placeholders)
	}
	return core.Validate.Struct(ut)
}

// apply copies the set fields of ut onto tmpl.
func (ut UpdateTemplate) apply(tmpl *Template) {
	if ut.Name != nil {
		tmpl.Name = core.CleanString(*ut.Name)
	}
	if ut.Description != nil {
		tmpl.Description = core.CleanString(*ut.Description)
	}
	if ut.Category != nil {
		tmpl.Category = *ut.Category
	}
	if ut.Subject != nil {
		tmpl.Subject = core.CleanString(*ut.Subject)
	}
	if ut.Preheader != nil {
		tmpl.Preheader = core.CleanString(*ut.Preheader)
	}
	if ut.Body != nil {
		tmpl.Body = *ut.Body
	}
	if ut.Placeholders != nil {
		tmpl.Placeholders = ut.Placeholders
	}
	if ut.IsActive != nil {
		tmpl.IsActive = *ut.IsActive
	}
}

// OrderingFields lists the fields a template listing may be ordered by.
var OrderingFields = []string{"slug", "name", "category", "created_at", "updated_at"}

type QueryFilter struct {
	Category   Category `query:"category"`
	ActiveOnly bool     `query:"active"`
	Search     string   `query:"search"` // case-insensitive match on slug or name
	Orderings  []core.DBOrdering
}

func (qf *QueryFilter) Clean() {
	qf.Category = Category(core.CleanString(string(qf.Category)))
	qf.Search = core.CleanString(qf.Search)
}

func (qf QueryFilter) IsEmpty() bool {
	return qf.Category == "" && !qf.ActiveOnly && qf.Search == ""
}

// cleanPlaceholders trims, drops blanks and de-duplicates names, keeping their order.
func cleanPlaceholders(names []string) []string {
	res := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = core.CleanString(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		res = append(res, n)
	}
	return res
}
