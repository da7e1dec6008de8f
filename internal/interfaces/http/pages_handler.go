package http

import (
	"errors"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"helpdesk-console/internal/adapters/http/middleware"
	"helpdesk-console/internal/application"
	"helpdesk-console/internal/domain"
)

type pageView struct {
	Title      string            `json:"title"`
	Path       string            `json:"path"`
	Public     bool              `json:"public"`
	Navigation []domain.MenuItem `json:"navigation,omitempty"`
}

// PagesHandler answers page descriptors. Guarded pages are reached only after
// RouteGuard rendered them.
type PagesHandler struct {
	cache *application.PermissionCache
	errs  errorResponder
}

func NewPagesHandler(cache *application.PermissionCache, errs errorResponder) *PagesHandler {
	return &PagesHandler{cache: cache, errs: errs}
}

func (h *PagesHandler) Page(route Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := middleware.SessionFrom(c)
		view := pageView{Title: route.Title, Path: route.Path}
		if sess.Authenticated {
			src, err := h.cache.Load(c.Request().Context(), sess)
			if errors.Is(err, domain.ErrUnauthenticated) {
				h.errs.expire(c)
				return c.Redirect(stdhttp.StatusFound, middleware.LoginPath)
			}
			if err != nil {
				return h.errs.handleError(c, err)
			}
			view.Navigation = src.Navigation()
		}
		return c.JSON(stdhttp.StatusOK, view)
	}
}

func (h *PagesHandler) Login(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, pageView{Title: "Sign in", Path: middleware.LoginPath, Public: true})
}

func (h *PagesHandler) Unauthorized(c echo.Context) error {
	return c.JSON(stdhttp.StatusForbidden, pageView{Title: "Unauthorized", Path: middleware.UnauthorizedPath, Public: true})
}

func Health(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{"status": "ok"})
}
