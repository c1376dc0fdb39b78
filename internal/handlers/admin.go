package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"rental-portal/internal/apperr"
	"rental-portal/internal/cascade"
	"rental-portal/internal/deletionlog"
	"rental-portal/internal/logger"
	"rental-portal/internal/models"
	"rental-portal/internal/scheduler"
	"rental-portal/internal/sweep"
)

// Deleter is the deletion engine the handlers drive.
type Deleter interface {
	DeleteLandlordProfile(ctx context.Context, profile *models.LandlordProfile, req cascade.Request, parent *models.DeletionLog) (*cascade.Result, error)
	DeleteSingleEntity(ctx context.Context, entity models.Deletable, req cascade.Request, parent *models.DeletionLog) (*cascade.Result, error)
	PrivacyDeleteUserProfile(ctx context.Context, profile *models.UserProfile, req cascade.Request) (*cascade.Result, error)
}

// SweepRunner runs privacy sweeps without overlapping.
type SweepRunner interface {
	SweepConfig() sweep.Config
	Run(ctx context.Context, cfg sweep.Config) (*sweep.Result, error)
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	db      *gorm.DB
	store   *deletionlog.Store
	deleter Deleter
	sweeper SweepRunner

	trustActorHeader bool
}

// NewAdminHandler creates a new admin handler. sweeper may be nil.
func NewAdminHandler(db *gorm.DB, store *deletionlog.Store, deleter Deleter, sweeper SweepRunner) *AdminHandler {
	return &AdminHandler{
		db:      db,
		store:   store,
		deleter: deleter,
		sweeper: sweeper,
	}
}

// TrustActorHeader makes the handler accept X-Actor-ID when the auth
// middleware set no actor.
func (h *AdminHandler) TrustActorHeader(trust bool) *AdminHandler {
	h.trustActorHeader = trust
	return h
}

// RegisterRoutes mounts the admin API. throttle guards destructive routes.
func (h *AdminHandler) RegisterRoutes(r gin.IRouter, throttle ...gin.HandlerFunc) {
	admin := r.Group("/api/admin")
	admin.GET("/deletion-logs", h.GetDeletionLogs)
	admin.GET("/deletion-logs/:id", h.GetDeletionLog)
	admin.GET("/deletion-stats", h.GetDeletionStats)

	destructive := admin.Group("", throttle...)
	destructive.DELETE("/landlord-profiles/:id", h.DeleteLandlordProfile)
	destructive.DELETE("/properties/:id", h.DeleteProperty)
	destructive.DELETE("/reviews/:id", h.DeleteReview)
	destructive.DELETE("/memberships/:id", h.DeleteMembership)
	destructive.POST("/user-profiles/:id/erase", h.EraseUserProfile)
	destructive.POST("/privacy-sweep", h.RunPrivacySweep)
}

type deleteRequest struct {
	Reason string `json:"reason"`
}

// GetDeletionLogs lists logs: by actor (?user_id=), by entity
// (?model=&object_id=) or the most recent ones.
func (h *AdminHandler) GetDeletionLogs(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		logs []models.DeletionLog
		err  error
	)
	switch {
	case c.Query("user_id") != "":
		userID, perr := parseID(c.Query("user_id"))
		if perr != nil {
			respondError(c, perr)
			return
		}
		logs, err = h.store.ForUser(ctx, userID)
	case c.Query("model") != "":
		objectID, perr := parseID(c.Query("object_id"))
		if perr != nil {
			respondError(c, perr)
			return
		}
		logs, err = h.store.ForModel(ctx, deletionlog.Ref{Model: c.Query("model"), ObjectID: objectID})
	default:
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		logs, err = h.store.Recent(ctx, limit)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// GetDeletionLog returns one log with its cascade children and, when the
// removed row still exists, the row itself.
func (h *AdminHandler) GetDeletionLog(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	log, err := h.store.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	children, err := h.store.Children(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	var object interface{}
	obj, err := deletionlog.Resolve(ctx, h.db, deletionlog.RefFor(log))
	switch {
	case err == nil:
		object = obj
	case !apperr.HasCode(err, apperr.CodeNotFound):
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"log":      log,
		"children": children,
		"object":   object,
	})
}

// GetDeletionStats returns statistics about the audit trail
func (h *AdminHandler) GetDeletionStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DeleteLandlordProfile cascades a landlord profile.
func (h *AdminHandler) DeleteLandlordProfile(c *gin.Context) {
	var profile models.LandlordProfile
	req, ok := h.prepareDelete(c, &profile)
	if !ok {
		return
	}
	res, err := h.deleter.DeleteLandlordProfile(c.Request.Context(), &profile, req, nil)
	h.respondDeleted(c, res, err)
}

func (h *AdminHandler) DeleteProperty(c *gin.Context) {
	var property models.Property
	h.deleteSingle(c, &property)
}

func (h *AdminHandler) DeleteReview(c *gin.Context) {
	var review models.Review
	h.deleteSingle(c, &review)
}

func (h *AdminHandler) DeleteMembership(c *gin.Context) {
	var membership models.CompanyMembership
	h.deleteSingle(c, &membership)
}

func (h *AdminHandler) deleteSingle(c *gin.Context, entity models.Deletable) {
	req, ok := h.prepareDelete(c, entity)
	if !ok {
		return
	}
	res, err := h.deleter.DeleteSingleEntity(c.Request.Context(), entity, req, nil)
	h.respondDeleted(c, res, err)
}

// EraseUserProfile privacy-deletes a user profile.
func (h *AdminHandler) EraseUserProfile(c *gin.Context) {
	var profile models.UserProfile
	req, ok := h.prepareDelete(c, &profile)
	if !ok {
		return
	}
	res, err := h.deleter.PrivacyDeleteUserProfile(c.Request.Context(), &profile, req)
	h.respondDeleted(c, res, err)
}

// RunPrivacySweep runs the privacy sweep now. dry_run overrides the configured value.
func (h *AdminHandler) RunPrivacySweep(c *gin.Context) {
	if h.sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "privacy sweep not available"})
		return
	}

	var req struct {
		DryRun *bool `json:"dry_run"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	cfg := h.sweeper.SweepConfig()
	if req.DryRun != nil {
		cfg.DryRun = *req.DryRun
	}

	logger.Info().Bool("dry_run", cfg.DryRun).Msg("admin: privacy sweep requested")

	result, err := h.sweeper.Run(c.Request.Context(), cfg)
	if errors.Is(err, scheduler.ErrSweepInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// prepareDelete resolves the actor, binds the optional reason and loads the
// target into dest. It writes the error response itself.
func (h *AdminHandler) prepareDelete(c *gin.Context, dest interface{}) (cascade.Request, bool) {
	actor, ok := h.actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor required"})
		return cascade.Request{}, false
	}

	var body deleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return cascade.Request{}, false
		}
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return cascade.Request{}, false
	}
	err = h.db.WithContext(c.Request.Context()).First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, apperr.NotFound("admin.load", nil))
		return cascade.Request{}, false
	}
	if err != nil {
		respondError(c, apperr.Storage("admin.load", err))
		return cascade.Request{}, false
	}

	return cascade.Request{Actor: &actor, Reason: body.Reason}, true
}

func (h *AdminHandler) respondDeleted(c *gin.Context, res *cascade.Result, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// actorID reads the acting user set by the auth middleware, falling back to
// the X-Actor-ID header only when it is trusted.
func (h *AdminHandler) actorID(c *gin.Context) (uint, bool) {
	if v, ok := c.Get("actor_id"); ok {
		if id, ok := v.(uint); ok && id > 0 {
			return id, true
		}
	}
	if !h.trustActorHeader {
		return 0, false
	}
	id, err := parseID(c.GetHeader("X-Actor-ID"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validationf("invalid id %q", s)
	}
	return uint(id), nil
}

// respondError maps the error taxonomy onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.CodeOf(err) {
	case apperr.CodeValidation:
		status = http.StatusBadRequest
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeStorage:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("admin request failed")
		c.JSON(status, gin.H{"error": string(apperr.CodeOf(err))})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
