package contact

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skartik/commerce-api/internal/handler"
	"github.com/skartik/commerce-api/internal/service/contact"
)

type Handler struct {
	service contact.ContactServicer
}

func NewHandler(service contact.ContactServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/contact", h.Submit)
}

func (h *Handler) Submit(c *gin.Context) {
	var sub contact.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	h.service.Submit(c.Request.Context(), &sub)
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(nil))
}
