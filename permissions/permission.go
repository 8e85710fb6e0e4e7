package permissions

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"roombook/shared/constant"

	"github.com/rs/zerolog/log"
)

//go:embed permissions.json
var permissionsData []byte

var knownRoles = []string{constant.RoleAdmin, constant.RoleMember}

// Permission lists the roles allowed on one route. An empty Roles list admits any signed-in user.
type Permission struct {
	Roles  []string `json:"roles"`
	Path   string   `json:"path"`
	Method string   `json:"method"`
	Skip   bool     `json:"skip"`
}

func (p Permission) Allows(role string) bool {
	return len(p.Roles) == 0 || slices.Contains(p.Roles, role)
}

type PermissionData struct {
	Endpoints []Permission `json:"endpoints"`
	Skip      bool         `json:"skip"`

	byRoute map[string]Permission
}

// Find returns the permission for a chi route pattern, or the zero Permission for unlisted routes.
func (r *PermissionData) Find(path, method string) Permission {
	return r.byRoute[routeKey(method, path)]
}

func routeKey(method, path string) string {
	return method + " " + path
}

// Parse decodes and indexes a permissions document. Duplicate routes and unknown roles are rejected.
func Parse(raw []byte) (*PermissionData, error) {
	var data PermissionData

	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}

	data.byRoute = make(map[string]Permission, len(data.Endpoints))

	for _, endpoint := range data.Endpoints {
		key := routeKey(endpoint.Method, endpoint.Path)
		if _, dup := data.byRoute[key]; dup {
			return nil, fmt.Errorf("duplicate permission for %s", key)
		}

		for _, role := range endpoint.Roles {
			if !slices.Contains(knownRoles, role) {
				return nil, fmt.Errorf("unknown role %q on %s", role, key)
			}
		}

		data.byRoute[key] = endpoint
	}

	return &data, nil
}

func Get() *PermissionData {
	data, err := Parse(permissionsData)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load embedded permissions")

		return nil
	}

	log.Info().Int("endpoints", len(data.Endpoints)).Msg("Successfully loaded embedded permissions")

	return data
}
