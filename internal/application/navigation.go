package application

import "helpdesk-console/internal/domain"

var profileEntry = domain.MenuItem{Name: "Profile", Icon: "user", Path: "/profile"}

// rolesWithoutProfile never receive the trailing profile entry.
var rolesWithoutProfile = []domain.Role{domain.RoleGuest}

var navigationTable = [domain.NumRoles][]domain.MenuItem{
	domain.RoleSuperAdmin: {
		{Name: "Dashboard", Icon: "dashboard", Path: "/super-admin/dashboard"},
		{Name: "Tenants", Icon: "apartment", Path: "/super-admin/tenants"},
		{Name: "Users", Icon: "team", Path: "/admin/users"},
		{Name: "Roles", Icon: "safety", Path: "/admin/roles"},
		{Name: "Menus", Icon: "menu", Path: "/super-admin/menus"},
	},
	domain.RoleAdmin: {
		{Name: "Dashboard", Icon: "dashboard", Path: "/admin/dashboard"},
		{Name: "Tickets", Icon: "inbox", Path: "/admin/tickets"},
		{Name: "Users", Icon: "team", Path: "/admin/users"},
		{Name: "Roles", Icon: "safety", Path: "/admin/roles"},
		{Name: "Products", Icon: "shopping", Path: "/admin/products"},
		{Name: "FAQs", Icon: "question", Path: "/admin/faqs"},
		{Name: "Knowledge Base", Icon: "book", Path: "/admin/knowledge-base"},
		{Name: "Files", Icon: "folder", Path: "/admin/files"},
	},
	domain.RoleTenantAdmin: {
		{Name: "Dashboard", Icon: "dashboard", Path: "/tenant/dashboard"},
		{Name: "Tickets", Icon: "inbox", Path: "/tenant/tickets"},
		{Name: "Users", Icon: "team", Path: "/tenant/users"},
		{Name: "Products", Icon: "shopping", Path: "/admin/products"},
	},
	domain.RoleDeveloper: {
		{Name: "Dashboard", Icon: "dashboard", Path: "/developer/dashboard"},
		{Name: "Tickets", Icon: "bug", Path: "/developer/tickets"},
		{Name: "Knowledge Base", Icon: "book", Path: "/admin/knowledge-base"},
		{Name: "Files", Icon: "folder", Path: "/admin/files"},
	},
	domain.RoleAgent: {
		{Name: "Dashboard", Icon: "dashboard", Path: "/agent/dashboard"},
		{Name: "Tickets", Icon: "inbox", Path: "/agent/tickets"},
		{Name: "FAQs", Icon: "question", Path: "/faqs"},
		{Name: "Knowledge Base", Icon: "book", Path: "/knowledge-base"},
	},
	domain.RoleUser: {
		{Name: "Dashboard", Icon: "dashboard", Path: "/user/dashboard"},
		{Name: "My Tickets", Icon: "inbox", Path: "/user/tickets"},
		{Name: "FAQs", Icon: "question", Path: "/faqs"},
		{Name: "Knowledge Base", Icon: "book", Path: "/knowledge-base"},
	},
	domain.RoleGuest: {
		{Name: "FAQs", Icon: "question", Path: "/faqs"},
		{Name: "Knowledge Base", Icon: "book", Path: "/knowledge-base"},
	},
}

// MenuForRole returns a copy of the static entries for a role. Unknown roles yield nothing.
func MenuForRole(role domain.Role) []domain.MenuItem {
	if !role.Valid() {
		return nil
	}
	entries := navigationTable[role]
	out := make([]domain.MenuItem, len(entries))
	copy(out, entries)
	return out
}

// ResolveNavigation unions the static menus of every held role. Roles are
// visited in declaration order, so the output only depends on the set of
// roles held. An entry shared by several roles stays at the position of the
// first role that contributes it.
func ResolveNavigation(roles []domain.Role) []domain.MenuItem {
	held := make([]bool, domain.NumRoles)
	valid := false
	for _, r := range roles {
		if r.Valid() {
			held[r] = true
			valid = true
		}
	}
	if !valid {
		held[domain.RoleUser] = true
	}

	var out []domain.MenuItem
	seen := map[domain.MenuKey]bool{}
	for _, role := range domain.AllRoles() {
		if !held[role] {
			continue
		}
		for _, item := range navigationTable[role] {
			if seen[item.Key()] {
				continue
			}
			seen[item.Key()] = true
			out = append(out, item)
		}
	}

	for _, excluded := range rolesWithoutProfile {
		if held[excluded] {
			return out
		}
	}
	if !seen[profileEntry.Key()] {
		out = append(out, profileEntry)
	}
	return out
}

// InStaticTable reports whether path is reachable through the static navigation of roles.
func InStaticTable(roles []domain.Role, path string) bool {
	for _, item := range ResolveNavigation(roles) {
		if item.Path == path {
			return true
		}
	}
	return false
}
