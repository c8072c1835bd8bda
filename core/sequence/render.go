package sequence

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/mailroom/core/template"
)

type (
	// TemplateGetter looks catalog templates up; *template.Service satisfies it.
	TemplateGetter interface {
		GetBySlug(ctx context.Context, slug string) (template.Template, error)
	}

	RenderedEntry struct {
		Entry       Entry                `json:"entry"`
		Content     template.Content     `json:"content"`
		Diagnostics template.Diagnostics `json:"diagnostics"`
	}

	Renderer struct {
		templates TemplateGetter
	}
)

var _ TemplateGetter = (*template.Service)(nil)

func NewRenderer(templates TemplateGetter) *Renderer {
	return &Renderer{templates: templates}
}

// RenderEntry merges mctx into the entry's content.
// Template references are resolved through the catalog; inline entries render their own copy.
func (r *Renderer) RenderEntry(ctx context.Context, e Entry, mctx template.Context) (RenderedEntry, error) {
	content := e.Content()
	if e.IsReference() {
		tmpl, err := r.templates.GetBySlug(ctx, e.TemplateSlug)
		if err != nil {
			return RenderedEntry{}, errors.Wrapf(err, "day %d entry", e.DayOffset)
		}
		content = tmpl.Content()
	}
	return RenderedEntry{
		Entry:       e,
		Content:     template.Render(content, mctx),
		Diagnostics: template.Validate(content, mctx),
	}, nil
}

// RenderDue renders every entry of seq due by elapsedDays.
func (r *Renderer) RenderDue(ctx context.Context, seq Sequence, elapsedDays int, mctx template.Context) ([]RenderedEntry, error) {
	due := EntriesDueBy(seq, elapsedDays)
	res := make([]RenderedEntry, 0, len(due))
	for _, e := range due {
		rendered, err := r.RenderEntry(ctx, e, mctx)
		if err != nil {
			return nil, errors.Wrapf(err, "rendering sequence %q", seq.Name)
		}
		res = append(res, rendered)
	}
	return res, nil
}
