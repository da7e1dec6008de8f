package domain

import (
	"encoding/json"
	"fmt"
)

// Fields flattens the state into string values under the fixed state keys.
// Empty values are omitted.
func (s PersistedState) Fields() (map[string]string, error) {
	out := make(map[string]string, 4)
	if len(s.Roles) > 0 {
		raw, err := json.Marshal(s.Roles)
		if err != nil {
			return nil, fmt.Errorf("encode roles: %w", err)
		}
		out[StateKeyRoles] = string(raw)
	}
	if s.Identity != nil {
		raw, err := json.Marshal(s.Identity)
		if err != nil {
			return nil, fmt.Errorf("encode identity: %w", err)
		}
		out[StateKeyIdentity] = string(raw)
	}
	if s.AccessToken != "" {
		out[StateKeyAccessToken] = s.AccessToken
	}
	if s.RefreshToken != "" {
		out[StateKeyRefreshToken] = s.RefreshToken
	}
	return out, nil
}

// StateFromFields is the inverse of Fields. A corrupt identity or role entry is
// dropped rather than failing the whole state.
func StateFromFields(fields map[string]string) PersistedState {
	state := PersistedState{
		AccessToken:  fields[StateKeyAccessToken],
		RefreshToken: fields[StateKeyRefreshToken],
	}
	if raw := fields[StateKeyRoles]; raw != "" {
		var roles []string
		if json.Unmarshal([]byte(raw), &roles) == nil {
			state.Roles = roles
		}
	}
	if raw := fields[StateKeyIdentity]; raw != "" {
		var identity Identity
		if json.Unmarshal([]byte(raw), &identity) == nil {
			state.Identity = &identity
		}
	}
	return state
}
