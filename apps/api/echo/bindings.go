package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/template"
)

var (
	orderingParam    = "ordering"
	elapsedDaysParam = "elapsed_days"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the "ordering" query param; unknown fields are dropped.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	ord.Orderings = core.ParseOrderings(ctx.QueryParam(orderingParam), allowed...)
}

// elapsedDays reads the optional "elapsed_days" query param.
func elapsedDays(ctx echo.Context) (days int, ok bool, err error) {
	raw := strings.TrimSpace(ctx.QueryParam(elapsedDaysParam))
	if raw == "" {
		return 0, false, nil
	}
	days, err = strconv.Atoi(raw)
	if err != nil || days < 0 {
		return 0, false, core.NewValidationError(nil, core.FieldError{
			Field: elapsedDaysParam,
			Error: elapsedDaysParam + " must be a non-negative integer",
		})
	}
	return days, true, nil
}

type (
	// RenderRequest carries ad hoc content to merge, without going through the catalog.
	RenderRequest struct {
		template.Content
		Context template.Context `json:"context"`
		Escape  []string         `json:"escape"` // context keys to HTML-escape before merging
	}

	PreviewRequest struct {
		Context template.Context `json:"context"`
		Escape  []string         `json:"escape"`
	}

	TestSendRequest struct {
		To      string           `json:"to"` // comma separated addresses
		Context template.Context `json:"context"`
		Escape  []string         `json:"escape"`
	}

	SequencePreviewRequest struct {
		ElapsedDays int              `json:"elapsed_days" validate:"min=0"`
		Context     template.Context `json:"context"`
		Escape      []string         `json:"escape"`
	}

	RenderResponse struct {
		Content     template.Content     `json:"content"`
		Diagnostics template.Diagnostics `json:"diagnostics"`
	}
)

// mergeContext returns the request context with the requested keys escaped.
func mergeContext(mctx template.Context, escape []string) template.Context {
	if mctx == nil {
		mctx = template.Context{}
	}
	if len(escape) == 0 {
		return mctx
	}
	return mctx.Escaped(escape...)
}
