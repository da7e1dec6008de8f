package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is a closed enumeration. Declaration order is the order roles are
// visited when navigation is resolved.
type Role int

const (
	RoleSuperAdmin Role = iota
	RoleAdmin
	RoleTenantAdmin
	RoleDeveloper
	RoleAgent
	RoleUser
	RoleGuest

	NumRoles int = iota
)

var roleNames = [NumRoles]string{
	RoleSuperAdmin:  "SUPER_ADMIN",
	RoleAdmin:       "ADMIN",
	RoleTenantAdmin: "TENANT_ADMIN",
	RoleDeveloper:   "DEVELOPER",
	RoleAgent:       "AGENT",
	RoleUser:        "USER",
	RoleGuest:       "GUEST",
}

var roleAliases = map[string]Role{
	"MASTER_ADMIN": RoleSuperAdmin,
}

// AllRoles returns every role in resolution order.
func AllRoles() []Role {
	out := make([]Role, NumRoles)
	for i := range out {
		out[i] = Role(i)
	}
	return out
}

func (r Role) Valid() bool { return r >= 0 && int(r) < NumRoles }

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

func ParseRole(s string) (Role, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "ROLE_")
	for i, n := range roleNames {
		if n == name {
			return Role(i), true
		}
	}
	if r, ok := roleAliases[name]; ok {
		return r, true
	}
	return 0, false
}

// ParseRoles converts labels into roles, dropping unknown labels and duplicates.
func ParseRoles(labels []string) []Role {
	seen := make(map[Role]bool, len(labels))
	out := make([]Role, 0, len(labels))
	for _, l := range labels {
		r, ok := ParseRole(l)
		if !ok || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

func RoleNames(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r.Valid() {
			out = append(out, r.String())
		}
	}
	return out
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("marshal role %d: %w", int(r), ErrInvalidInput)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, ok := ParseRole(string(b))
	if !ok {
		return fmt.Errorf("unknown role %q: %w", string(b), ErrInvalidInput)
	}
	*r = parsed
	return nil
}

// UnmarshalJSON on Identity keeps unknown role labels from failing the whole payload.
func (i *Identity) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          string   `json:"id"`
		DisplayName string   `json:"display_name"`
		Name        string   `json:"name"`
		Email       string   `json:"email"`
		Roles       []string `json:"roles"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	i.ID = raw.ID
	i.DisplayName = raw.DisplayName
	if i.DisplayName == "" {
		i.DisplayName = raw.Name
	}
	i.Email = raw.Email
	i.Roles = ParseRoles(raw.Roles)
	return nil
}
