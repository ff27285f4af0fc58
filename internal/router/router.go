package router

import (
	"screamlink/internal/handlers"
	"screamlink/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Screams      *handlers.ScreamHandler
	Users        *handlers.UserHandler
	Notification *handlers.NotificationHandler
}

// RegisterRoutes mounts the API on r. LoadUser must already be installed.
func RegisterRoutes(r *gin.Engine, h Handlers) {
	// Public Routes
	r.GET("/screams", h.Screams.List)
	r.GET("/scream/:screamId", h.Screams.Get)
	r.GET("/user/:handle", h.Users.Profile)

	r.POST("/signup", h.Auth.Signup)
	r.POST("/login", h.Auth.Login)
	r.POST("/logout", h.Auth.Logout)

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/scream", h.Screams.Create)
		authorized.DELETE("/scream/:screamId", h.Screams.Delete)
		authorized.GET("/scream/:screamId/like", h.Screams.Like)
		authorized.GET("/scream/:screamId/unlike", h.Screams.Unlike)
		authorized.POST("/scream/:screamId/comment", h.Screams.Comment)
		authorized.POST("/scream/:screamId", h.Screams.SetImage)
		authorized.POST("/scream/:screamId/image", h.Screams.SetImage)

		authorized.POST("/user", h.Users.AddDetails)
		authorized.POST("/user/image", h.Users.SetImage)
		authorized.GET("/user", h.Users.Me)

		authorized.POST("/notifications", h.Notification.MarkRead)
	}
}
