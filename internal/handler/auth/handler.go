package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skartik/commerce-api/internal/handler"
	"github.com/skartik/commerce-api/internal/service/auth"
	"github.com/skartik/commerce-api/internal/service/user"
)

type Handler struct {
	auth  auth.AuthServicer
	users user.UserServicer
}

func NewHandler(authSvc auth.AuthServicer, userSvc user.UserServicer) *Handler {
	return &Handler{auth: authSvc, users: userSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		group.POST("/register", h.Register)
		group.POST("/login", h.Login)
		group.POST("/password-reset/request", h.RequestPasswordReset)
		group.POST("/password-reset/confirm", h.ResetPassword)
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Locale   string `json:"locale"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.users.Register(c.Request.Context(), req.Email, req.Name, req.Password, req.Locale)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	token, loggedIn, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"token": token,
		"user":  loggedIn,
	}))
}

type resetRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req resetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		handler.Error(c, err)
		return
	}

	// Always 202: the endpoint must not reveal whether the address exists.
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(nil))
}

type resetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
