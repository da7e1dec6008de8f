package http

import (
	stdhttp "net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"helpdesk-console/internal/adapters/http/middleware"
	"helpdesk-console/internal/application"
	"helpdesk-console/internal/domain"
)

type navigationView struct {
	Source  string            `json:"source"`
	Loading bool              `json:"loading"`
	Menu    []domain.MenuItem `json:"menu"`
	Reason  string            `json:"reason,omitempty"`
}

type permissionView struct {
	Path      string `json:"path"`
	Known     bool   `json:"known"`
	CanView   bool   `json:"can_view"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

type NavigationHandler struct {
	cache *application.PermissionCache
	errs  errorResponder
}

func NewNavigationHandler(cache *application.PermissionCache, errs errorResponder) *NavigationHandler {
	return &NavigationHandler{cache: cache, errs: errs}
}

func (h *NavigationHandler) view(sess domain.Session, src application.NavigationSource) navigationView {
	v := navigationView{
		Source:  src.Kind(),
		Loading: h.cache.IsLoading(sess.UserKey()),
		Menu:    src.Navigation(),
	}
	if v.Menu == nil {
		v.Menu = []domain.MenuItem{}
	}
	if fb, ok := src.(application.StaticFallback); ok && fb.Reason != nil {
		v.Reason = fb.Reason.Error()
	}
	return v
}

func (h *NavigationHandler) Get(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	src, err := h.cache.Load(c.Request().Context(), sess)
	if err != nil {
		return h.errs.handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, h.view(sess, src))
}

func (h *NavigationHandler) Refresh(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	src, err := h.cache.Refresh(c.Request().Context(), sess)
	if err != nil {
		return h.errs.handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, h.view(sess, src))
}

// Permissions reports the grant for one menu path. Known is false while the
// console runs on the static fallback.
func (h *NavigationHandler) Permissions(c echo.Context) error {
	path := strings.TrimSpace(c.QueryParam("path"))
	if path == "" {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "path is required"})
	}
	sess := middleware.SessionFrom(c)
	src, err := h.cache.Load(c.Request().Context(), sess)
	if err != nil {
		return h.errs.handleError(c, err)
	}
	grant, known := application.GrantFor(src, path)
	return c.JSON(stdhttp.StatusOK, permissionView{
		Path:      path,
		Known:     known,
		CanView:   grant.CanView,
		CanEdit:   grant.CanEdit,
		CanDelete: grant.CanDelete,
	})
}
