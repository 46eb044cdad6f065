package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/services"
	"petcare-vet-server/internal/utils"
)

const actorKey = "actor"

// AuthMiddleware creates a middleware for JWT authentication. The verified
// claims become the request's services.ActorContext.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], secret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		c.Set(actorKey, services.ActorContext{
			UserID:  claims.UserID,
			StoreID: claims.StoreID,
			Role:    models.Role(strings.ToLower(string(claims.Role))),
		})
		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			utils.InternalServerError(c, "Actor not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		for _, allowed := range allowedRoles {
			if actor.Role == allowed {
				c.Next()
				return
			}
		}
		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// GetActor returns the authenticated actor of the request.
func GetActor(c *gin.Context) (services.ActorContext, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return services.ActorContext{}, false
	}
	actor, ok := v.(services.ActorContext)
	return actor, ok
}
