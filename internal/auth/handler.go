// File: internal/auth/handler.go
package auth

import (
	"errors"
	"io"

	"account_agent/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	return &Handler{manager: manager, logger: logger.Named("auth_handler")}
}

// RegisterRoutes sets up the session and profile routes. requireSession guards
// routes that only make sense while someone is signed in.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, requireSession gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", h.signup)
		authGroup.POST("/login", h.login)
		authGroup.POST("/logout", h.logout)
		authGroup.POST("/password-reset", h.passwordReset)
		authGroup.GET("/session", h.session)
		authGroup.GET("/session/events", h.sessionEvents)
		authGroup.PUT("/email", requireSession, h.updateEmail)
		authGroup.PUT("/password", requireSession, h.updatePassword)
		authGroup.DELETE("/account", requireSession, h.deleteAccount)
	}

	me := router.Group("/me", requireSession)
	{
		me.GET("/profile", h.profile)
		me.PATCH("/profile", h.updateProfile)
	}
}

// bind decodes the JSON body into req, answering the request itself on failure.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.LoggerFromContext(c, h.logger).Debug("Invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return false
	}
	return true
}

func (h *Handler) signup(c *gin.Context) {
	var req SignupRequest
	if !h.bind(c, &req) {
		return
	}
	common.RespondResult(c, h.manager.Signup(c.Request.Context(), req.Email, req.Password, req.DisplayName))
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}
	common.RespondResult(c, h.manager.Login(c.Request.Context(), req.Email, req.Password))
}

func (h *Handler) logout(c *gin.Context) {
	common.RespondResult(c, h.manager.Logout(c.Request.Context()))
}

func (h *Handler) passwordReset(c *gin.Context) {
	var req PasswordResetRequest
	if !h.bind(c, &req) {
		return
	}
	common.RespondResult(c, h.manager.SendPasswordResetEmail(c.Request.Context(), req.Email))
}

func (h *Handler) updateEmail(c *gin.Context) {
	var req UpdateEmailRequest
	if !h.bind(c, &req) {
		return
	}
	common.RespondResult(c, h.manager.UpdateUserEmail(c.Request.Context(), req.Email))
}

func (h *Handler) updatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	common.RespondResult(c, h.manager.UpdateUserPassword(c.Request.Context(), req.Password))
}

func (h *Handler) deleteAccount(c *gin.Context) {
	common.RespondResult(c, h.manager.DeleteUserAccount(c.Request.Context()))
}

func (h *Handler) session(c *gin.Context) {
	common.RespondOK(c, "", h.manager.Status())
}

// sessionEvents streams session changes as server-sent events, starting with
// the current status.
func (h *Handler) sessionEvents(c *gin.Context) {
	events, unsubscribe := h.manager.Subscribe()
	defer unsubscribe()

	c.SSEvent("status", h.manager.Status())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("session", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) profile(c *gin.Context) {
	common.RespondResult(c, h.manager.Profile(c.Request.Context()))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req ProfileUpdate
	if !h.bind(c, &req) {
		return
	}
	common.RespondResult(c, h.manager.UpdateUserProfile(c.Request.Context(), req))
}
