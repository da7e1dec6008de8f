package domain

import "time"

type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Roles       []Role `json:"roles"`
}

// EffectiveRoles returns the identity's roles, defaulting to USER when none are held.
func (i Identity) EffectiveRoles() []Role {
	var out []Role
	for _, r := range i.Roles {
		if r.Valid() {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return []Role{RoleUser}
	}
	return out
}

func (i Identity) HasAnyRole(required ...Role) bool {
	for _, held := range i.EffectiveRoles() {
		for _, r := range required {
			if held == r {
				return true
			}
		}
	}
	return false
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginResult struct {
	Tokens   TokenPair `json:"tokens"`
	Identity Identity  `json:"identity"`
}

type MenuItem struct {
	Name     string     `json:"name"`
	Icon     string     `json:"icon"`
	Path     string     `json:"path"`
	Parent   string     `json:"parent,omitempty"`
	Children []MenuItem `json:"children,omitempty"`
}

// Key is the composite identity used to deduplicate resolved navigation.
func (m MenuItem) Key() MenuKey { return MenuKey{Name: m.Name, Path: m.Path} }

type MenuKey struct {
	Name string
	Path string
}

type PermissionRecord struct {
	Name     string `json:"name"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

type MenuPermission struct {
	Role      string `json:"role"`
	Path      string `json:"path"`
	CanView   bool   `json:"can_view"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

type NotificationMessage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Fixed keys the persisted client state is stored under.
const (
	StateKeyRoles        = "roles"
	StateKeyIdentity     = "identity"
	StateKeyAccessToken  = "access_token"
	StateKeyRefreshToken = "refresh_token"
)

type PersistedState struct {
	Roles        []string  `json:"roles"`
	Identity     *Identity `json:"identity,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
}

func (s PersistedState) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == "" && s.Identity == nil && len(s.Roles) == 0
}

type Session struct {
	ID            string    `json:"-"`
	Identity      Identity  `json:"identity"`
	Tokens        TokenPair `json:"-"`
	Authenticated bool      `json:"authenticated"`
}

// UserKey identifies the session's owner for per-user caches and feeds.
func (s Session) UserKey() string {
	if s.Identity.ID != "" {
		return s.Identity.ID
	}
	return s.ID
}
