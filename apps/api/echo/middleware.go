package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mailroom/core"
)

// Headers set by the authenticating proxy in front of the admin API.
const (
	headerForwardedUser  = "X-Forwarded-User"
	headerForwardedEmail = "X-Forwarded-Email"
)

var contextOperatorKey = "operator"

// operatorMiddleware stores the admin forwarded by the proxy in the request context.
func operatorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		op := core.Operator{
			Username: strings.TrimSpace(req.Header.Get(headerForwardedUser)),
			Email:    strings.TrimSpace(req.Header.Get(headerForwardedEmail)),
		}
		if !op.IsZero() {
			ctx.Set(contextOperatorKey, op)
		}
		return next(ctx)
	}
}

func contextOperator(ctx echo.Context) core.Operator {
	op, _ := ctx.Get(contextOperatorKey).(core.Operator)
	return op
}
