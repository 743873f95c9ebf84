package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skartik/commerce-api/internal/handler"
	"github.com/skartik/commerce-api/internal/mailer"
	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
)

type Handler struct {
	repo   repository.SettingsRepository
	source *mailer.SettingsSource
}

func NewHandler(repo repository.SettingsRepository, source *mailer.SettingsSource) *Handler {
	return &Handler{repo: repo, source: source}
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	group := r.Group("/settings")
	{
		group.GET("", h.GetSettings)
		group.PUT("", h.UpdateSettings)
	}
}

func (h *Handler) GetSettings(c *gin.Context) {
	current, err := h.repo.Get(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(current))
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var s model.StoreSettings
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.repo.Update(c.Request.Context(), &s); err != nil {
		handler.Error(c, err)
		return
	}

	// Emails render the footer from the cached copy; drop it so the next
	// send sees the update.
	h.source.Invalidate()

	c.JSON(http.StatusOK, handler.NewSuccessResponse(s))
}
