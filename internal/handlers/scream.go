package handlers

import (
	"net/http"

	"screamlink/internal/middleware"
	"screamlink/internal/services"

	"github.com/gin-gonic/gin"
)

type ScreamHandler struct {
	screams *services.ScreamService
}

func NewScreamHandler(screams *services.ScreamService) *ScreamHandler {
	return &ScreamHandler{screams: screams}
}

type bodyRequest struct {
	Body string `json:"body"`
}

type imageRequest struct {
	ImageURL string `json:"imageUrl"`
}

func (h *ScreamHandler) List(c *gin.Context) {
	screams, err := h.screams.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, screams)
}

func (h *ScreamHandler) Create(c *gin.Context) {
	var req bodyRequest
	if !bindJSON(c, &req) {
		return
	}
	sc, err := h.screams.Create(c.Request.Context(), middleware.CurrentUser(c), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (h *ScreamHandler) Get(c *gin.Context) {
	detail, err := h.screams.Get(c.Request.Context(), c.Param("screamId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ScreamHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.screams.Delete(c.Request.Context(), c.Param("screamId"), user.Handle); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Scream deleted successfully"})
}

func (h *ScreamHandler) Like(c *gin.Context) {
	sc, err := h.screams.Like(c.Request.Context(), c.Param("screamId"), middleware.CurrentUser(c).Handle)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (h *ScreamHandler) Unlike(c *gin.Context) {
	sc, err := h.screams.Unlike(c.Request.Context(), c.Param("screamId"), middleware.CurrentUser(c).Handle)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (h *ScreamHandler) Comment(c *gin.Context) {
	var req bodyRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.screams.Comment(c.Request.Context(), c.Param("screamId"), middleware.CurrentUser(c), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// SetImage takes the URL of an image that was already uploaded elsewhere.
func (h *ScreamHandler) SetImage(c *gin.Context) {
	var req imageRequest
	if !bindJSON(c, &req) {
		return
	}
	sc, err := h.screams.SetImage(c.Request.Context(), c.Param("screamId"), middleware.CurrentUser(c).Handle, req.ImageURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}
