package middleware

import (
	"github.com/graphrag-chat/backend/internal/app"

	"github.com/labstack/echo/v4"
)

type AppContext struct {
	echo.Context
	App *app.App
}

// AppContextMiddleware hands every handler the shared *app.App.
func AppContextMiddleware(a *app.App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, a})
		}
	}
}

// GetApp returns the App injected by AppContextMiddleware.
func GetApp(c echo.Context) *app.App {
	if cc, ok := c.(*AppContext); ok {
		return cc.App
	}
	return nil
}
