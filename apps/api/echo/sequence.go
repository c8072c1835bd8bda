package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/sequence"
)

type sequenceApi struct {
	registry *sequence.Registry
	renderer *sequence.Renderer
}

// SequenceDetail is a sequence, plus its schedule position when elapsed_days is given.
type SequenceDetail struct {
	sequence.Sequence
	ElapsedDays *int             `json:"elapsed_days,omitempty"`
	Due         []sequence.Entry `json:"due,omitempty"`
	Next        *sequence.Entry  `json:"next,omitempty"`
}

func registerSequenceAPI(g *echo.Group, reg *sequence.Registry, renderer *sequence.Renderer) {
	api := sequenceApi{registry: reg, renderer: renderer}

	sg := g.Group("/sequences")
	sg.GET("", api.sequenceQuery)
	sg.GET("/:name", api.sequenceRetrieve)
	sg.POST("/:name/preview", api.sequencePreview)
}

// Handlers

func (api *sequenceApi) sequenceQuery(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.registry.All())
}

func (api *sequenceApi) sequenceRetrieve(ctx echo.Context) error {
	seq, err := api.registry.Get(ctx.Param("name"))
	if err != nil {
		return err
	}
	days, ok, err := elapsedDays(ctx)
	if err != nil {
		return err
	}

	detail := SequenceDetail{Sequence: seq}
	if ok {
		detail.ElapsedDays = &days
		detail.Due = sequence.EntriesDueBy(seq, days)
		if next, found := sequence.NextDue(seq, days); found {
			detail.Next = &next
		}
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *sequenceApi) sequencePreview(ctx echo.Context) error {
	seq, err := api.registry.Get(ctx.Param("name"))
	if err != nil {
		return err
	}
	data := new(SequencePreviewRequest)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	if err = core.Validate.Struct(data); err != nil {
		return err
	}

	rendered, err := api.renderer.RenderDue(ctx.Request().Context(), seq, data.ElapsedDays, mergeContext(data.Context, data.Escape))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rendered)
}
