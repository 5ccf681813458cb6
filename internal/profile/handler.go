// File: internal/profile/handler.go
package profile

import (
	"errors"

	"account_agent/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler exposes the profile store over the local HTTP API.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("profile_handler")}
}

// RegisterRoutes mounts the profile routes. requireSession must set the signed-in UID.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, requireSession gin.HandlerFunc) {
	profiles := router.Group("/profiles", requireSession)
	{
		profiles.POST("/sync", h.sync)
		profiles.GET("/:id", h.ownProfile, h.get)
		profiles.PUT("/:id", h.ownProfile, h.save)
		profiles.PATCH("/:id", h.ownProfile, h.update)
		profiles.DELETE("/:id", h.ownProfile, h.delete)
	}
	router.GET("/outbox", requireSession, h.listPending)
}

// ownProfile rejects access to any document but the caller's own.
func (h *Handler) ownProfile(c *gin.Context) {
	if c.Param("id") != common.GetUserIDFromContext(c) {
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You can only access your own profile."))
		return
	}
	c.Next()
}

func (h *Handler) bindFields(c *gin.Context) (Fields, bool) {
	var req Fields
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LoggerFromContext(c, h.logger).Debug("Invalid profile request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return req, false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return req, false
	}
	fields, verr := req.Sanitize()
	if verr != nil {
		common.RespondResult(c, common.Fail[*Document](common.NewValidationError(verr.Message)))
		return fields, false
	}
	return fields, true
}

func (h *Handler) get(c *gin.Context) {
	common.RespondResult(c, h.service.Get(c.Request.Context(), c.Param("id")))
}

func (h *Handler) save(c *gin.Context) {
	fields, ok := h.bindFields(c)
	if !ok {
		return
	}
	common.RespondResult(c, h.service.Save(c.Request.Context(), c.Param("id"), fields))
}

func (h *Handler) update(c *gin.Context) {
	fields, ok := h.bindFields(c)
	if !ok {
		return
	}
	common.RespondResult(c, h.service.Update(c.Request.Context(), c.Param("id"), fields))
}

func (h *Handler) delete(c *gin.Context) {
	common.RespondResult(c, h.service.Delete(c.Request.Context(), c.Param("id")))
}

func (h *Handler) sync(c *gin.Context) {
	report := h.service.ReplayPending(c.Request.Context())
	common.RespondOK(c, "Outbox replayed.", report)
}

func (h *Handler) listPending(c *gin.Context) {
	q := common.GetPageQuery(c)
	writes, pagination, err := h.service.PendingWrites(c.Request.Context(), common.GetUserIDFromContext(c), q)
	if err != nil {
		common.LoggerFromContext(c, h.logger).Error("Failed to list pending writes", zap.Error(err))
		common.RespondWithError(c, common.ErrInternalServer)
		return
	}
	common.RespondPaginated(c, "Pending profile writes retrieved.", writes, pagination)
}
