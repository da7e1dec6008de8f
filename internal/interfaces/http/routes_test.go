package http

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"helpdesk-console/internal/domain"
)

func parseYAML(t *testing.T, file string) *yaml.Node {
	t.Helper()
	contents, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read %s failed: %v", file, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		t.Fatalf("unmarshal %s failed: %v", file, err)
	}
	if len(doc.Content) == 0 {
		t.Fatalf("%s has empty yaml document", file)
	}
	return doc.Content[0]
}

func mappingValue(t *testing.T, node *yaml.Node, key string) *yaml.Node {
	t.Helper()
	if node == nil || node.Kind != yaml.MappingNode {
		t.Fatalf("expected mapping node while reading key %q", key)
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func TestRoutesYAML_Shape(t *testing.T) {
	root := parseYAML(t, "routes.yaml")
	routes := mappingValue(t, root, "routes")
	require.NotNil(t, routes)
	require.Equal(t, yaml.SequenceNode, routes.Kind)

	for _, route := range routes.Content {
		path := mappingValue(t, route, "path")
		require.NotNil(t, path)
		require.NotNil(t, mappingValue(t, route, "title"), path.Value)
		if roles := mappingValue(t, route, "roles"); roles != nil {
			require.Equal(t, yaml.SequenceNode, roles.Kind, path.Value)
			for _, r := range roles.Content {
				_, ok := domain.ParseRole(r.Value)
				assert.True(t, ok, "%s: unknown role %s", path.Value, r.Value)
			}
		}
	}
}

func TestLoadRoutes_Embedded(t *testing.T) {
	table, err := LoadRoutes("")
	require.NoError(t, err)
	require.NotEmpty(t, table.Routes)

	byPath := map[string]Route{}
	for _, r := range table.Routes {
		byPath[r.Path] = r
	}
	admin, ok := byPath["/admin/dashboard"]
	require.True(t, ok)
	rule, err := admin.Rule()
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, rule.Roles)

	kb := byPath["/admin/knowledge-base"]
	rule, err = kb.Rule()
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Role{domain.RoleAdmin, domain.RoleDeveloper}, rule.Roles)
}

func TestParseRoutes_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown role": "routes:\n  - path: /x\n    roles: [WIZARD]\n",
		"relative":     "routes:\n  - path: x\n",
		"duplicate":    "routes:\n  - path: /x\n  - path: /x\n",
		"reserved":     "routes:\n  - path: /login\n",
		"malformed":    "routes: [",
	}
	for name, raw := range cases {
		_, err := ParseRoutes([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestLoadRoutes_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(file, []byte("routes:\n  - path: /reports\n    title: Reports\n    roles: [MASTER_ADMIN]\n"), 0o600))

	table, err := LoadRoutes(file)
	require.NoError(t, err)
	rule, err := table.Routes[0].Rule()
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleSuperAdmin}, rule.Roles)

	_, err = LoadRoutes(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
