package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"okazje-ingest/internal/cache"
	"okazje-ingest/internal/ingest"
	"okazje-ingest/internal/marketplace"
	"okazje-ingest/internal/middleware"
	"okazje-ingest/internal/models"
	"okazje-ingest/internal/repository"
	"okazje-ingest/internal/validator"
)

const (
	runListPrefix = "runs:list:"
	runListTTL    = 30 * time.Second
)

// Runner starts an import run.
type Runner interface {
	Run(ctx context.Context, req ingest.RunRequest) (*models.ImportRun, error)
}

type ImportHandler struct {
	profiles repository.ProfileStore
	runs     repository.RunStore
	runner   Runner
	vendors  *marketplace.Registry
	cache    *cache.Cache
	log      logrus.FieldLogger
}

func NewImportHandler(profiles repository.ProfileStore, runs repository.RunStore, runner Runner, vendors *marketplace.Registry, c *cache.Cache, log logrus.FieldLogger) *ImportHandler {
	return &ImportHandler{
		profiles: profiles,
		runs:     runs,
		runner:   runner,
		vendors:  vendors,
		cache:    c,
		log:      log,
	}
}

func (h *ImportHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// ListProfiles returns every import profile.
func (h *ImportHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.profiles.FindAll(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("list profiles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list profiles"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profiles, "total": len(profiles)})
}

func (h *ImportHandler) CreateProfile(c *gin.Context) {
	var profile models.ImportProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile.ID = ""
	if err := validator.ValidateProfile(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile.CreatedBy = middleware.UID(c)

	if err := h.profiles.Create(c.Request.Context(), &profile); err != nil {
		h.log.WithError(err).Error("create profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h *ImportHandler) GetProfile(c *gin.Context) {
	profile, err := h.profiles.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err, "profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile replaces a profile, keeping its creation metadata.
func (h *ImportHandler) UpdateProfile(c *gin.Context) {
	id := c.Param("id")
	existing, err := h.profiles.FindByID(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err, "profile")
		return
	}

	var profile models.ImportProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile.ID = id
	profile.CreatedBy = existing.CreatedBy
	profile.CreatedAt = existing.CreatedAt
	if err := validator.ValidateProfile(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.profiles.Update(c.Request.Context(), &profile); err != nil {
		h.storeError(c, err, "profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// StartRun runs a profile now. ?dryRun=true previews without writing.
func (h *ImportHandler) StartRun(c *gin.Context) {
	dryRun, err := strconv.ParseBool(c.DefaultQuery("dryRun", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dryRun must be a boolean"})
		return
	}

	run, err := h.runner.Run(c.Request.Context(), ingest.RunRequest{
		ProfileID:      c.Param("id"),
		DryRun:         dryRun,
		TriggeredBy:    models.TriggerManual,
		TriggeredByUID: middleware.UID(c),
	})
	switch {
	case errors.Is(err, ingest.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	case errors.Is(err, ingest.ErrProfileDisabled):
		c.JSON(http.StatusConflict, gin.H{"error": "profile is disabled"})
		return
	case errors.Is(err, ingest.ErrUnsupportedVendor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.log.WithError(err).WithField("profileId", c.Param("id")).Error("start run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start run"})
		return
	}

	// Run history changed.
	h.cache.DeleteByPrefix(runListPrefix)
	c.JSON(http.StatusCreated, run)
}

// ListRuns lists run history, newest first. Responses are cached briefly.
func (h *ImportHandler) ListRuns(c *gin.Context) {
	filter := repository.RunFilter{ProfileID: c.Query("profileId")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	cacheKey := fmt.Sprintf("%sp:%s_l:%d", runListPrefix, filter.ProfileID, filter.EffectiveLimit())
	if cached, found := h.cache.Get(cacheKey); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	runs, err := h.runs.List(c.Request.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	response := gin.H{"data": runs, "total": len(runs)}
	h.cache.Set(cacheKey, response, runListTTL)
	c.JSON(http.StatusOK, response)
}

func (h *ImportHandler) GetRun(c *gin.Context) {
	run, err := h.runs.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, err, "run")
		return
	}
	c.JSON(http.StatusOK, run)
}

// PreviewItem fetches one item straight from a marketplace.
func (h *ImportHandler) PreviewItem(c *gin.Context) {
	adapter, ok := h.vendors.Get(models.VendorID(c.Param("vendor")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "vendor not configured"})
		return
	}

	item, err := adapter.GetDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		var apiErr *marketplace.APIError
		if errors.As(err, &apiErr) {
			status := http.StatusBadGateway
			if apiErr.StatusCode == http.StatusNotFound {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
			return
		}
		h.log.WithError(err).Error("preview item")
		c.JSON(http.StatusBadGateway, gin.H{"error": "vendor request failed"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ImportHandler) storeError(c *gin.Context, err error, what string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	h.log.WithError(err).Errorf("load %s", what)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get " + what})
}
