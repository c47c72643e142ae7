package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// actorMiddleware puts the instructor named by the token claims into the context.
func actorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Subject == "" || claims.Audience != audience {
				return errHttpForbidden
			}
			ctx.Set(actorContextKey, claims.Actor())
			return next(ctx)
		}
	}
}
