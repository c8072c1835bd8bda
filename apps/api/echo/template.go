package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/template"
)

type templateApi struct {
	service *template.Service
}

func registerTemplateAPI(g *echo.Group, svc *template.Service) {
	api := templateApi{service: svc}

	g.GET("/categories", api.categoryQuery)
	g.POST("/render", api.render)

	tg := g.Group("/templates")
	tg.GET("", api.templateQuery)
	tg.POST("", api.templateCreate)

	// detail endpoints
	dg := tg.Group("/:slug")
	dg.GET("", api.templateRetrieve)
	dg.PUT("", api.templateUpsert)
	dg.PATCH("", api.templateUpdate)
	dg.DELETE("", api.templateDestroy)
	dg.POST("/deactivate", api.templateDeactivate)
	dg.POST("/preview", api.templatePreview)
	dg.POST("/test-send", api.templateTestSend)
	dg.GET("/lint", api.templateLint)
}

// Handlers

func (api *templateApi) templateQuery(ctx echo.Context) error {
	filter := new(template.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}
	ord := new(Ordering)
	ord.Bind(ctx, template.OrderingFields...)
	filter.Orderings = ord.Orderings

	tmpls, err := api.service.List(ctx.Request().Context(), *filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tmpls)
}

func (api *templateApi) templateCreate(ctx echo.Context) error {
	data := new(template.NewTemplate)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	tmpl, err := api.service.Create(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tmpl)
}

func (api *templateApi) templateRetrieve(ctx echo.Context) error {
	tmpl, err := api.service.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *templateApi) templateUpsert(ctx echo.Context) error {
	data := new(template.NewTemplate)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	slug := core.CleanString(ctx.Param("slug"), true /* lower */)
	if data.Slug == "" {
		data.Slug = slug
	} else if core.CleanString(data.Slug, true) != slug {
		return core.NewValidationError(nil, errSlugMismatch)
	}

	tmpl, err := api.service.Upsert(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *templateApi) templateUpdate(ctx echo.Context) error {
	data := new(template.UpdateTemplate)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	tmpl, err := api.service.Update(ctx.Request().Context(), ctx.Param("slug"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *templateApi) templateDeactivate(ctx echo.Context) error {
	tmpl, err := api.service.Deactivate(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *templateApi) templateDestroy(ctx echo.Context) error {
	if err := api.service.Delete(ctx.Request().Context(), ctx.Param("slug")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *templateApi) templatePreview(ctx echo.Context) error {
	data := new(PreviewRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	content, diag, err := api.service.Preview(ctx.Request().Context(), ctx.Param("slug"), mergeContext(data.Context, data.Escape))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, RenderResponse{Content: content, Diagnostics: diag})
}

func (api *templateApi) templateTestSend(ctx echo.Context) error {
	data := new(TestSendRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	to, err := core.ParseAddressList(data.To)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "to", Error: "invalid address list"})
	}

	diag, err := api.service.TestSend(ctx.Request().Context(), ctx.Param("slug"), to, mergeContext(data.Context, data.Escape))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"to": core.JoinAddresses(to), "diagnostics": diag})
}

func (api *templateApi) templateLint(ctx echo.Context) error {
	tmpl, err := api.service.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, template.Lint(tmpl))
}

func (api *templateApi) render(ctx echo.Context) error {
	data := new(RenderRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	mctx := mergeContext(data.Context, data.Escape)
	return ctx.JSON(http.StatusOK, RenderResponse{
		Content:     template.Render(data.Content, mctx),
		Diagnostics: template.Validate(data.Content, mctx),
	})
}

func (api *templateApi) categoryQuery(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, template.Categories)
}
