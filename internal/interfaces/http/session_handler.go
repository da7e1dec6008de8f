package http

import (
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"helpdesk-console/internal/adapters/http/middleware"
	"helpdesk-console/internal/application"
	"helpdesk-console/internal/domain"
)

type sessionView struct {
	Authenticated bool             `json:"authenticated"`
	Identity      *domain.Identity `json:"identity,omitempty"`
	Roles         []string         `json:"roles"`
	// SessionID is only returned to header-mode clients, which cannot read the cookie.
	SessionID string `json:"session_id,omitempty"`
}

type SessionHandler struct {
	service *application.SessionService
	cookie  middleware.SessionConfig
	errs    errorResponder
}

func NewSessionHandler(service *application.SessionService, cookie middleware.SessionConfig, errs errorResponder) *SessionHandler {
	return &SessionHandler{service: service, cookie: cookie, errs: errs}
}

func (h *SessionHandler) view(sess domain.Session) sessionView {
	v := sessionView{Authenticated: sess.Authenticated, Roles: []string{}}
	if sess.Authenticated {
		identity := sess.Identity
		v.Identity = &identity
		v.Roles = domain.RoleNames(identity.EffectiveRoles())
		if h.cookie.Mode == middleware.ModeHeader {
			v.SessionID = sess.ID
		}
	}
	return v
}

func (h *SessionHandler) Login(c echo.Context) error {
	var creds domain.Credentials
	if err := c.Bind(&creds); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	sess, err := h.service.Login(c.Request().Context(), middleware.SessionFrom(c).ID, creds)
	if err != nil {
		return h.errs.handleError(c, err)
	}
	middleware.WriteSessionCookie(c, h.cookie, sess.ID)
	middleware.SetSession(c, sess)
	return c.JSON(stdhttp.StatusOK, h.view(sess))
}

func (h *SessionHandler) Logout(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if err := h.service.Logout(c.Request().Context(), sess.ID); err != nil {
		return h.errs.handleError(c, err)
	}
	middleware.ClearSessionCookie(c, h.cookie)
	return c.NoContent(stdhttp.StatusNoContent)
}

// Current confirms the persisted session with the backend, as on a fresh page load.
func (h *SessionHandler) Current(c echo.Context) error {
	sess, err := h.service.Initialize(c.Request().Context(), middleware.SessionFrom(c).ID)
	if err != nil {
		return h.errs.handleError(c, err)
	}
	if !sess.Authenticated && sess.ID != "" {
		middleware.ClearSessionCookie(c, h.cookie)
	}
	return c.JSON(stdhttp.StatusOK, h.view(sess))
}
