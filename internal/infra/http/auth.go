package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"riyald/internal/domain"
	"riyald/internal/infra/auth/rbac"

	"github.com/gin-gonic/gin"
)

// requireAdmin gates the administrative surface. In apikey mode the caller
// must present the shared key, pass the role check, and clear the rego
// policy when one is loaded. Claim submission never goes through here; it
// authenticates with the voucher signature instead.
func (s *Server) requireAdmin(c *gin.Context, permission string, policyInput domain.PolicyInput) (domain.Identity, bool) {
	if s.initErr != nil {
		writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
		return domain.Identity{}, false
	}
	if s.cfg.AuthMode == "" || s.cfg.AuthMode == "none" {
		return domain.Identity{
			Subject: "system",
			Roles:   []string{rbac.DefaultAdminRole},
			Scopes:  []string{rbac.DefaultAdminScope},
		}, true
	}

	key := strings.TrimSpace(c.GetHeader("X-Admin-Key"))
	if key == "" || s.adminAPIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeError(c, domain.ErrUnauthorizedAdmin)
		return domain.Identity{}, false
	}
	identity := domain.Identity{
		Subject: "admin-key",
		Roles:   []string{rbac.DefaultAdminRole},
		Scopes:  []string{rbac.DefaultAdminScope},
	}
	if s.authorizer != nil {
		if err := s.authorizer.Require(identity, permission); err != nil {
			writeAuthzError(c, err)
			return domain.Identity{}, false
		}
	}
	if s.policy != nil {
		policyInput.Identity = domain.PolicyIdentity{
			Subject: identity.Subject,
			Roles:   identity.Roles,
			Scopes:  identity.Scopes,
		}
		evaluation, err := s.policy.Evaluate(c.Request.Context(), policyInput)
		if err != nil {
			writeErrorCode(c, http.StatusInternalServerError, "POLICY_ERROR", "policy evaluation failed")
			return domain.Identity{}, false
		}
		if !evaluation.Result.Allow {
			writeError(c, domain.ErrUnauthorizedAdmin)
			return domain.Identity{}, false
		}
	}
	return identity, true
}

func writeAuthzError(c *gin.Context, err error) {
	if authz, ok := rbac.IsAuthzError(err); ok {
		writeErrorCode(c, http.StatusForbidden, authz.Code, "forbidden")
		return
	}
	writeError(c, err)
}
