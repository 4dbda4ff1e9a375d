// Package auth guards the operator HTTP endpoints with static API keys.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"sort"
	"strings"
)

const (
	RoleAsk       = "ask"
	RoleTranslate = "translate"
	// RoleOperator grants every other role.
	RoleOperator = "operator"
)

var knownRoles = map[string]struct{}{
	RoleAsk:       {},
	RoleTranslate: {},
	RoleOperator:  {},
}

type Identity struct {
	Operator string
	Roles    []string
}

func (i Identity) HasRole(role string) bool {
	for _, candidate := range i.Roles {
		if candidate == role || candidate == RoleOperator {
			return true
		}
	}
	return false
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type staticKey struct {
	digest   [sha256.Size]byte
	identity Identity
}

// StaticAPIKeyValidator checks keys from a "key:operator:role|role,..." list.
type StaticAPIKeyValidator struct {
	keys []staticKey
}

func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	seen := map[string]struct{}{}
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:operator:role|role", entry)
		}
		key := strings.TrimSpace(parts[0])
		operator := strings.TrimSpace(parts[1])
		if key == "" || operator == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/operator", entry)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate static key for operator %q", operator)
		}
		seen[key] = struct{}{}

		var roles []string
		for _, role := range strings.Split(parts[2], "|") {
			role = strings.TrimSpace(role)
			if role == "" {
				continue
			}
			if _, ok := knownRoles[role]; !ok {
				return nil, fmt.Errorf("invalid static key entry for operator %q: unknown role %q", operator, role)
			}
			roles = append(roles, role)
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("invalid static key entry for operator %q: at least one role is required", operator)
		}
		sort.Strings(roles)
		validator.keys = append(validator.keys, staticKey{
			digest:   sha256.Sum256([]byte(key)),
			identity: Identity{Operator: operator, Roles: roles},
		})
	}
	return validator, nil
}

// Validate compares digests in constant time and visits every key.
func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	digest := sha256.Sum256([]byte(apiKey))
	var (
		found   Identity
		matched bool
	)
	for _, candidate := range v.keys {
		if subtle.ConstantTimeCompare(digest[:], candidate.digest[:]) == 1 {
			found = candidate.identity
			matched = true
		}
	}
	return found, matched
}
