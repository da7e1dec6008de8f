package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"helpdesk-console/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Debug(context.Context, string, ...any) {}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, context.Context) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", 2*time.Second, nopLogger{})
	require.NoError(t, err)
	ctx, seg := xray.BeginSegment(context.Background(), "backend-test")
	t.Cleanup(func() { seg.Close(nil) })
	return c, ctx
}

func TestNew_RejectsInvalidURL(t *testing.T) {
	_, err := New("not a url", time.Second, nopLogger{})
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	c, ctx := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		var creds domain.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","user":{"id":"u1","name":"Ada","roles":["ADMIN","WIZARD"]}}`))
	})

	res, err := c.Login(ctx, domain.Credentials{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "at", res.Tokens.AccessToken)
	assert.Equal(t, "Ada", res.Identity.DisplayName)
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, res.Identity.Roles)

	_, err = c.Login(ctx, domain.Credentials{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestStatusMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusUnauthorized:        domain.ErrUnauthenticated,
		http.StatusForbidden:           domain.ErrPermissionDeny,
		http.StatusNotFound:            domain.ErrNotFound,
		http.StatusUnprocessableEntity: domain.ErrInvalidInput,
		http.StatusServiceUnavailable:  domain.ErrBackendUnavailable,
	}
	for status, want := range cases {
		c, ctx := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		})
		_, err := c.CurrentIdentity(ctx, "at")
		assert.ErrorIs(t, err, want, "status %d", status)
		assert.Contains(t, err.Error(), "nope")
	}
}

func TestErrorBodyFallsBackToText(t *testing.T) {
	c, ctx := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})
	_, err := c.Notifications(ctx, "at")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusBadGateway, status.Status)
	assert.Equal(t, "upstream down", status.Message)
}

func TestCallerCancellationIsNotBackendFailure(t *testing.T) {
	c, ctx := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err := c.Menus(ctx, "at", "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestBearerTokenAndPaths(t *testing.T) {
	seen := map[string]string{}
	c, ctx := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen[r.Method+" "+r.URL.Path] = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/users/u1/menus":
			_, _ = w.Write([]byte(`[{"name":"Tickets","path":"/admin/tickets"}]`))
		case "/users/u1/menu-permissions":
			_, _ = w.Write([]byte(`[{"role":"ADMIN","path":"/admin/tickets","can_view":true}]`))
		case "/users/u1/permissions", "/notifications":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	menus, err := c.Menus(ctx, "at", "u1")
	require.NoError(t, err)
	assert.Equal(t, "/admin/tickets", menus[0].Path)

	grants, err := c.MenuPermissions(ctx, "at", "u1")
	require.NoError(t, err)
	assert.True(t, grants[0].CanView)

	_, err = c.Permissions(ctx, "at", "u1")
	require.NoError(t, err)
	_, err = c.Notifications(ctx, "at")
	require.NoError(t, err)
	require.NoError(t, c.MarkRead(ctx, "at", "n1"))
	require.NoError(t, c.MarkAllRead(ctx, "at"))
	require.NoError(t, c.Logout(ctx, domain.TokenPair{AccessToken: "at", RefreshToken: "rt"}))

	for route, auth := range seen {
		assert.Equal(t, "Bearer at", auth, route)
	}
	assert.Contains(t, seen, "PUT /notifications/n1/read")
	assert.Contains(t, seen, "POST /auth/logout")
}

func TestNetworkFailureIsBackendUnavailable(t *testing.T) {
	c, err := New("http://127.0.0.1:1", time.Second, nopLogger{})
	require.NoError(t, err)
	ctx, seg := xray.BeginSegment(context.Background(), "backend-test")
	defer seg.Close(nil)
	_, err = c.Notifications(ctx, "at")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}
