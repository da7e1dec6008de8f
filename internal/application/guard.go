package application

import "helpdesk-console/internal/domain"

type GuardOutcome int

const (
	OutcomeRender GuardOutcome = iota
	OutcomeRedirectLogin
	OutcomeRedirectUnauthorized
)

func (o GuardOutcome) String() string {
	switch o {
	case OutcomeRender:
		return "render"
	case OutcomeRedirectLogin:
		return "redirect_login"
	case OutcomeRedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

type GuardRequest struct {
	Session       domain.Session
	RequiredRoles []domain.Role
	// MenuPath, when set, additionally requires view access to that menu entry.
	MenuPath string
	Source   NavigationSource
}

// Guard decides whether a navigation attempt may render protected content.
// It holds no state, so every attempt is judged against the current session.
type Guard struct{}

func (Guard) Evaluate(req GuardRequest) GuardOutcome {
	if !req.Session.Authenticated {
		return OutcomeRedirectLogin
	}
	if len(req.RequiredRoles) > 0 && !req.Session.Identity.HasAnyRole(req.RequiredRoles...) {
		return OutcomeRedirectUnauthorized
	}
	if req.MenuPath != "" && !menuAccessible(req) {
		return OutcomeRedirectUnauthorized
	}
	return OutcomeRender
}

func menuAccessible(req GuardRequest) bool {
	switch src := req.Source.(type) {
	case ServerAuthoritative:
		return src.CanView(req.MenuPath)
	case StaticFallback:
		return containsPath(src.Menu, req.MenuPath)
	default:
		return InStaticTable(req.Session.Identity.Roles, req.MenuPath)
	}
}

func containsPath(items []domain.MenuItem, path string) bool {
	for _, item := range items {
		if item.Path == path || containsPath(item.Children, path) {
			return true
		}
	}
	return false
}
