// Package owecho mounts OpenWire on the Echo framework.
//
//	e := echo.New()
//	h := openwire.NewHandler(runner, openwire.WithSessions(sessions))
//	owecho.Mount(e, h)
//
// Or on a group with middleware, which prefixes the endpoint paths:
//
//	g := e.Group("/app", authMiddleware)
//	owecho.MountGroup(g, h)
package owecho

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/openwire"
)

// router is the part of *echo.Echo and *echo.Group Mount needs.
type router interface {
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// Mount registers the bridge and update endpoints on e.
func Mount(e *echo.Echo, h *openwire.Handler) {
	mount(e, h)
}

// MountGroup registers the bridge and update endpoints on g. The group's
// middleware runs before the handler's own checks.
func MountGroup(g *echo.Group, h *openwire.Handler) {
	mount(g, h)
}

func mount(r router, h *openwire.Handler) {
	r.POST(openwire.BridgePath, wrap(h, h.ServeBridge))
	r.POST(openwire.UpdatePath, wrap(h, h.ServeUpdate))
	r.POST(openwire.AdminUpdatePath, wrap(h, h.ServeAdminUpdate))
}

func wrap(h *openwire.Handler, fn http.HandlerFunc) echo.HandlerFunc {
	return echo.WrapHandler(h.Guard(fn))
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return owecho.Render(c, views.Page())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}

// MountComponent renders a component's initial markup into the response.
// store is usually the request's session; nil skips persisting state.
//
//	return owecho.MountComponent(c, runner, "counter", map[string]any{"count": 5}, session)
func MountComponent(c echo.Context, runner *openwire.Runner, ref string, props map[string]any, store openwire.StateStore) error {
	html, err := runner.Mount(c.Request().Context(), ref, props, store)
	if err != nil {
		return err
	}
	return c.HTML(http.StatusOK, html)
}
