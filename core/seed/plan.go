package seed

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/mailroom/core/template"
)

type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionUnchanged Action = "unchanged"
)

// Getter is the read side of the catalog used to plan a seeding run.
type Getter interface {
	GetBySlug(ctx context.Context, slug string) (template.Template, error)
}

// Change is what seeding would do to one template.
type Change struct {
	Slug   string
	Action Action
	Diff   string // unified diff of the changed fields, for updates
}

// Plan compares the seed templates with the catalog without writing anything.
func Plan(ctx context.Context, catalog Getter, tmpls []template.NewTemplate) ([]Change, error) {
	changes := make([]Change, 0, len(tmpls))
	for _, nt := range tmpls {
		curr, err := catalog.GetBySlug(ctx, nt.Slug)
		if err != nil {
			if errors.Cause(err) == template.ErrNotFound {
				changes = append(changes, Change{Slug: nt.Slug, Action: ActionCreate})
				continue
			}
			return nil, errors.Wrapf(err, "planning %q", nt.Slug)
		}

		diff, err := diffTemplate(curr, nt)
		if err != nil {
			return nil, errors.Wrapf(err, "diffing %q", nt.Slug)
		}
		action := ActionUpdate
		if diff == "" {
			action = ActionUnchanged
		}
		changes = append(changes, Change{Slug: nt.Slug, Action: action, Diff: diff})
	}
	return changes, nil
}

func diffTemplate(curr template.Template, nt template.NewTemplate) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(templateText(curr)),
		B:        difflib.SplitLines(templateText(template.MergeNewTemplate(curr, nt))),
		FromFile: curr.Slug + " (catalog)",
		ToFile:   nt.Slug + " (seed)",
		Context:  2,
	})
}

// templateText lists every field an upsert may change; id and timestamps are left out.
func templateText(t template.Template) string {
	var b strings.Builder
	b.WriteString("name: " + t.Name + "\n")
	b.WriteString("description: " + t.Description + "\n")
	b.WriteString("category: " + string(t.Category) + "\n")
	b.WriteString("is_active: " + strconv.FormatBool(t.IsActive) + "\n")
	b.WriteString("is_system: " + strconv.FormatBool(t.IsSystem) + "\n")
	b.WriteString("subject: " + t.Subject + "\n")
	b.WriteString("preheader: " + t.Preheader + "\n")
	b.WriteString("placeholders: " + strings.Join(t.Placeholders, ", ") + "\n")
	b.WriteString("body:\n")
	b.WriteString(t.Body)
	if !strings.HasSuffix(t.Body, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
