package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/opd-desk/internal/handler"
	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
	"github.com/jwalitptl/opd-desk/pkg/auth"
)

type AuthMiddleware struct {
	jwt   auth.JWTService
	users repository.UserRepository
}

func NewAuthMiddleware(jwt auth.JWTService, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:   jwt,
		users: users,
	}
}

// Authenticate verifies the bearer token and stores the principal in the
// context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.jwt.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse(msg))
			return
		}

		userID, _ := claims.UserID()
		handler.SetPrincipal(c, auth.Principal{
			UserID:   userID,
			ClinicID: claims.ClinicID,
			Email:    claims.Email,
			Role:     claims.Role,
		})
		c.Next()
	}
}

// activeUser loads the caller and aborts unless the account is still
// active.
func (m *AuthMiddleware) activeUser(c *gin.Context) (*model.User, bool) {
	p := handler.CurrentPrincipal(c)
	user, err := m.users.GetByID(c.Request.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("unknown user"))
			return nil, false
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to check permission"))
		return nil, false
	}
	if !user.IsActive {
		c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("account is inactive"))
		return nil, false
	}
	return user, true
}

// RequirePermission checks the caller's current permission set. Users are
// re-read so a revoked permission or a deactivated account takes effect
// before the token expires.
func (m *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := m.activeUser(c)
		if !ok {
			return
		}
		if !user.HasPermission(permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
			return
		}
		c.Next()
	}
}

// RequireRole admits active callers whose current role is one of roles.
// The stored role wins over the one in the token.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := m.activeUser(c)
		if !ok {
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("role not allowed"))
	}
}
