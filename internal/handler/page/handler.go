package page

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/skartik/commerce-api/internal/handler"
	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/service/page"
)

type Handler struct {
	service page.PageServicer
}

func NewHandler(service page.PageServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/pages/:slug", h.GetPage)
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	pages := r.Group("/pages")
	{
		pages.GET("", h.ListPages)
		pages.POST("", h.CreatePage)
		pages.PUT("/:id", h.UpdatePage)
		pages.DELETE("/:id", h.DeletePage)
	}
}

func (h *Handler) GetPage(c *gin.Context) {
	found, err := h.service.GetPage(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(found))
}

func (h *Handler) ListPages(c *gin.Context) {
	pages, err := h.service.ListPages(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(pages))
}

func (h *Handler) CreatePage(c *gin.Context) {
	var p model.Page
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.CreatePage(c.Request.Context(), &p); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) UpdatePage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid page ID"))
		return
	}

	var p model.Page
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	p.ID = id

	if err := h.service.UpdatePage(c.Request.Context(), &p); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) DeletePage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid page ID"))
		return
	}

	if err := h.service.DeletePage(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
