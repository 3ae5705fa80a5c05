package middlewares

import (
	"log/slog"
	"net/http"
	"strings"

	"urbanconnect-be/models"
	"urbanconnect-be/services"
	"urbanconnect-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey = "user_id"
	ActorKey  = "actor"
)

// AuthCookie is the cookie set on login for browser clients.
const AuthCookie = "auth_token"

// AuthMiddleware accepts a bearer token or the auth cookie and stores the
// caller as a *services.Actor in the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, errorBody(services.ErrAuthRequired, "No authorization token provided"))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString, secret)
		if err != nil {
			slog.Debug("token validation failed", "error", err)
			c.JSON(http.StatusUnauthorized, errorBody(services.ErrAuthRequired, "Invalid authorization token"))
			c.Abort()
			return
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, errorBody(services.ErrAuthRequired, "Invalid token claims"))
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(ActorKey, &services.Actor{
			UserID:     userID,
			Role:       models.Role(claims.Role),
			Name:       claims.Name,
			Department: claims.Department,
		})
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise continues anonymously.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}
		claims, err := utils.ParseToken(tokenString, secret)
		if err != nil {
			c.Next()
			return
		}
		if userID, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
			c.Set(UserIDKey, claims.UserID)
			c.Set(ActorKey, &services.Actor{
				UserID:     userID,
				Role:       models.Role(claims.Role),
				Name:       claims.Name,
				Department: claims.Department,
			})
		}
		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles. It must run
// after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, errorBody(services.ErrAuthRequired, ""))
			c.Abort()
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, errorBody(services.ErrForbidden, ""))
		c.Abort()
	}
}

// CurrentActor returns the authenticated caller or nil.
func CurrentActor(c *gin.Context) *services.Actor {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*services.Actor)
	return actor
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil {
		return cookie
	}
	return ""
}

func errorBody(e *services.Error, msg string) gin.H {
	if msg == "" {
		msg = e.Message
	}
	return gin.H{
		"error":     msg,
		"code":      e.Code,
		"kind":      e.Kind,
		"retryable": e.Retryable(),
	}
}
