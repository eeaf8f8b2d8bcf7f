package rbac

import (
	"errors"
	"strings"

	"riyald/internal/domain"
)

const (
	DefaultAdminRole  = "riyal_issuer_admin"
	DefaultAdminScope = "admin:*"
)

type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Authorizer grants administrative permissions by role or scope. It is the
// default when no rego bundle is configured.
type Authorizer struct {
	adminRole  string
	adminScope string
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{
		adminRole:  DefaultAdminRole,
		adminScope: DefaultAdminScope,
	}
}

func (a *Authorizer) Require(identity domain.Identity, permission string) error {
	if identity.Subject == "" {
		return domain.ErrUnauthorized
	}
	if permission == "" {
		return nil
	}
	if a.hasAdmin(identity) {
		return nil
	}
	if strings.HasPrefix(permission, "admin:") {
		return &AuthzError{Code: "MISSING_ROLE", Err: domain.ErrForbidden}
	}
	if !hasScope(identity, permission) {
		return &AuthzError{Code: "MISSING_SCOPE", Err: domain.ErrForbidden}
	}
	return nil
}

func (a *Authorizer) hasAdmin(identity domain.Identity) bool {
	for _, r := range identity.Roles {
		if r == a.adminRole {
			return true
		}
	}
	return hasScope(identity, a.adminScope)
}

func hasScope(identity domain.Identity, scope string) bool {
	if scope == "" {
		return false
	}
	for _, s := range identity.Scopes {
		if s == scope || s == DefaultAdminScope {
			return true
		}
	}
	return false
}

func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}
