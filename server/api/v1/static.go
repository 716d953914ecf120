package v1

import (
	"os"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

// RegisterStatic serves the prebuilt front end from dir under prefix. Unknown
// paths fall back to index.html so client-side routes survive a reload.
func RegisterStatic(e *echo.Echo, prefix, dir string) {
	static := middleware.StaticWithConfig(middleware.StaticConfig{
		Filesystem: os.DirFS(dir),
		HTML5:      true,
	})
	notFound := func(*echo.Context) error { return echo.ErrNotFound }

	e.GET(prefix, notFound, noCacheHTML, static)
	e.GET(prefix+"/*", notFound, noCacheHTML, static)
}

// noCacheHTML marks HTML responses no-cache; hashed assets stay cacheable.
func noCacheHTML(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if res, err := echo.UnwrapResponse(c.Response()); err == nil {
			res.Before(func() {
				if strings.HasPrefix(res.Header().Get(echo.HeaderContentType), "text/html") {
					res.Header().Set(echo.HeaderCacheControl, "no-cache")
				}
			})
		}
		return next(c)
	}
}
