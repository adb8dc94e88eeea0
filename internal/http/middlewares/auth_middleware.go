package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rmorel/userhub/internal/domain/user"
)

// TokenVerifier is kept small so tests can fake it easily.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// AccountResolver turns a verified subject id back into an account. The
// lookup covers the case of an account deleted after its token was issued.
type AccountResolver interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users AccountResolver
}

func NewAuthMiddleware(jwt TokenVerifier, users AccountResolver) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

// RequireAuth authenticates the request from its bearer token and attaches
// the resolved principal (password hash stripped) to the context.
//
// Account status is deliberately not checked here: a token issued before an
// account was deactivated keeps authenticating until it expires. Status
// only gates the login flow. Changing that would turn stateless tokens into
// server-side sessions.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))

		if raw == "" {
			abortUnauthorized(c, "No token provided")
			return
		}

		subjectID, err := m.jwt.Verify(raw)

		if err != nil {
			// uniform message regardless of why verification failed
			abortUnauthorized(c, "Invalid token")
			return
		}

		principal, err := m.users.GetByID(c.Request.Context(), subjectID)

		if err != nil {
			abortUnauthorized(c, "User not found")
			return
		}

		principal = principal.Public()

		// Stash the principal and useful bits of identity on the context
		c.Set(ctxPrincipalKey, principal)
		c.Set(ctxUserIDKey, principal.ID)
		c.Set(ctxRoleKey, principal.Role)

		// propagate the actor onto the standard context for logging
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), KeyUserID, principal.ID),
		)

		c.Next()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

// Helpers so handlers don't need to know the magic keys.

func PrincipalFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxPrincipalKey)
	if !ok {
		return user.User{}, false
	}
	principal, ok := v.(user.User)
	return principal, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
