package middleware

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/library-catalog/internal/adapters/http/dto"
	"github.com/jsamuelsen/library-catalog/internal/platform/config"
)

const (
	// ContextKeyClaims is the gin context key of the extracted claims.
	ContextKeyClaims = "claims"

	// RoleLibrarian may add books to libraries.
	RoleLibrarian = "librarian"

	defaultSubjectHeader = "X-User-ID"
	defaultRolesHeader   = "X-User-Roles"
	defaultScopesHeader  = "X-User-Scopes"
)

// Claims are the caller attributes forwarded by the gateway, which has
// already verified the token.
type Claims struct {
	Subject string
	Roles   []string
	Scopes  []string
}

// HasRole reports whether the caller holds role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasScope reports whether the caller was granted scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ExtractClaims reads the claim headers named in cfg, falling back to
// X-User-ID, X-User-Roles (comma separated) and X-User-Scopes (space
// separated).
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	subject, roles, scopes := defaultSubjectHeader, defaultRolesHeader, defaultScopesHeader

	if cfg != nil {
		subject = cmp.Or(cfg.SubjectHeader, subject)
		roles = cmp.Or(cfg.RolesHeader, roles)
		scopes = cmp.Or(cfg.ScopesHeader, scopes)
	}

	return &Claims{
		Subject: strings.TrimSpace(c.GetHeader(subject)),
		Roles:   splitNonEmpty(strings.Split(c.GetHeader(roles), ",")),
		Scopes:  strings.Fields(c.GetHeader(scopes)),
	}
}

// GetClaims returns the claims stored by RequireAuth, or nil.
func GetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}

	claims, _ := v.(*Claims)

	return claims
}

// RequireAuth rejects requests without a subject with 401.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFor(c, cfg)

		if claims.Subject == "" {
			dto.AbortWithCode(c, dto.ErrorCodeUnauthorized, "authentication required")
			return
		}

		c.Next()
	}
}

// RequireRole rejects callers without role with 403.
func RequireRole(cfg *config.AuthConfig, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !claimsFor(c, cfg).HasRole(role) {
			dto.AbortWithCode(c, dto.ErrorCodeForbidden, "role "+role+" required")
			return
		}

		c.Next()
	}
}

// LibrarianGuards returns the middleware protecting write routes: none when
// auth is disabled, else authentication plus the librarian role.
func LibrarianGuards(cfg *config.AuthConfig) []gin.HandlerFunc {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	return []gin.HandlerFunc{RequireAuth(cfg), RequireRole(cfg, RoleLibrarian)}
}

func claimsFor(c *gin.Context, cfg *config.AuthConfig) *Claims {
	if claims := GetClaims(c); claims != nil {
		return claims
	}

	claims := ExtractClaims(c, cfg)
	c.Set(ContextKeyClaims, claims)

	return claims
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
