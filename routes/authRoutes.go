package routes

import (
	"urbanconnect-be/controllers"
	"urbanconnect-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, auth *controllers.AuthController, secret string) {
	group := r.Group("/api/auth")
	{
		group.POST("/register", auth.RegisterUser)
		group.POST("/login", auth.LoginUser)
		group.POST("/logout", auth.LogoutUser)
		group.GET("/me", middlewares.AuthMiddleware(secret), auth.GetMe)
	}
}
