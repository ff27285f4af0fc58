package handlers

import (
	"net/http"

	"screamlink/internal/middleware"
	"screamlink/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) AddDetails(c *gin.Context) {
	var req services.DetailsInput
	if !bindJSON(c, &req) {
		return
	}
	if _, err := h.users.AddDetails(c.Request.Context(), middleware.CurrentUser(c).Handle, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Details added successfully"})
}

func (h *UserHandler) SetImage(c *gin.Context) {
	var req imageRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, err := h.users.SetImage(c.Request.Context(), middleware.CurrentUser(c).Handle, req.ImageURL); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image updated successfully"})
}

// Me returns the signed-in user's credentials, likes and latest
// notifications.
func (h *UserHandler) Me(c *gin.Context) {
	me, err := h.users.Authenticated(c.Request.Context(), middleware.CurrentUser(c).Handle)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

func (h *UserHandler) Profile(c *gin.Context) {
	p, err := h.users.Profile(c.Request.Context(), c.Param("handle"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
