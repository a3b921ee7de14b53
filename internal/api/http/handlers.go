package http

import (
	"errors"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/archive"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/inventory"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/format"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/monitoring"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/utils"
)

// GenerationHeader carries the list generation a response was built from
const GenerationHeader = "X-Instance-Generation"

// Handlers contains all HTTP handlers
type Handlers struct {
	list    *instance.List
	sizer   inventory.Sizer
	metrics *monitoring.Metrics
	logger  *zap.Logger
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(list *instance.List, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		list:    list,
		sizer:   archive.DiskUsage,
		logger:  logger,
		started: time.Now(),
	}
}

// WithMetrics adds export metrics
func (h *Handlers) WithMetrics(metrics *monitoring.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// Register adds all API routes to router
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/health", h.Health)

	api := router.Group("/api")
	api.GET("/instances", h.ListInstances)
	api.POST("/instances", h.AdoptInstance)
	api.POST("/instances/reload", h.Reload)
	api.GET("/instances/:id", h.GetInstance)
	api.PATCH("/instances/:id", h.UpdateInstance)
	api.GET("/instances/:id/usage", h.Usage)
	api.GET("/instances/:id/export", h.Export)
	api.GET("/instances/:id/icon", h.Icon)
	api.GET("/groups", h.Groups)
	api.GET("/summary", h.Summary)
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"root":           h.list.Root(),
		"instances":      h.list.Len(),
		"generation":     h.list.Generation(),
		"subscribers":    h.list.Subscribers(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// ListInstances renders the whole list. ?format=yaml|toml selects another
// encoding; JSON is the default.
func (h *Handlers) ListInstances(c *gin.Context) {
	generation, views := h.list.Views()
	doc := format.NewDocument(generation, views)
	c.Header(GenerationHeader, generation)

	name := c.DefaultQuery("format", format.JSON)
	if name == format.JSON {
		c.JSON(http.StatusOK, doc)
		return
	}

	data, err := format.Marshal(name, doc)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	c.Data(http.StatusOK, format.ContentType(name), data)
}

// GetInstance returns a single instance
func (h *Handlers) GetInstance(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, inst.View())
}

// UpdateRequest lists the editable instance properties
type UpdateRequest struct {
	Name    *string `json:"name"`
	Group   *string `json:"group"`
	IconKey *string `json:"icon_key"`
	Notes   *string `json:"notes"`
}

// Validate checks every property present in the request
func (r UpdateRequest) Validate() error {
	if r.Name != nil {
		if err := utils.ValidateName(*r.Name); err != nil {
			return err
		}
	}
	if r.Group != nil {
		if err := utils.ValidateGroup(*r.Group); err != nil {
			return err
		}
	}
	if r.IconKey != nil {
		if err := utils.ValidateIconKey(*r.IconKey); err != nil {
			return err
		}
	}
	if r.Notes != nil {
		return utils.ValidateNotes(*r.Notes)
	}
	return nil
}

// UpdateInstance edits display properties in memory. Each changed property
// produces an item_changed event.
func (h *Handlers) UpdateInstance(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	if req.Name != nil {
		inst.SetName(*req.Name)
	}
	if req.Group != nil {
		inst.SetGroup(*req.Group)
	}
	if req.IconKey != nil {
		inst.SetIconKey(*req.IconKey)
	}
	if req.Notes != nil {
		inst.SetNotes(*req.Notes)
	}

	c.JSON(http.StatusOK, inst.View())
}

// AdoptRequest names a directory below the instance root
type AdoptRequest struct {
	Dir string `json:"dir" binding:"required"`
}

// AdoptInstance loads one directory of the root and appends it
func (h *Handlers) AdoptInstance(c *gin.Context) {
	var req AdoptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	inst, index, err := h.list.Adopt(c.Request.Context(), req.Dir)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"index":    index,
			"instance": inst.View(),
		})
	case errors.Is(err, instance.ErrInvalidName):
		respondError(c, http.StatusBadRequest, err)
	case errors.Is(err, instance.ErrDuplicate):
		respondError(c, http.StatusConflict, err)
	case errors.Is(err, instance.ErrNotAnInstance):
		respondError(c, http.StatusUnprocessableEntity, err)
	default:
		h.logger.Error("Failed to adopt instance", zap.String("dir", req.Dir), zap.Error(err))
		respondError(c, http.StatusInternalServerError, err)
	}
}

// Reload rescans the instance root
func (h *Handlers) Reload(c *gin.Context) {
	report := h.list.LoadAll(c.Request.Context())
	c.Header(GenerationHeader, report.Generation)
	c.JSON(http.StatusOK, report)
}

// Usage reports the disk usage of an instance directory
func (h *Handlers) Usage(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	usage, err := h.sizer(c.Request.Context(), inst.Dir())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    inst.ID(),
		"usage": usage,
	})
}

// Export streams an archive of the instance directory.
// ?format=zip (default) or tar.zst.
func (h *Handlers) Export(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	archiveFormat, err := archive.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	c.Header("Content-Type", archiveFormat.ContentType())
	c.Header("Content-Disposition", `attachment; filename="`+inst.ID()+archiveFormat.Extension()+`"`)
	c.Status(http.StatusOK)

	stats, err := archive.Export(c.Request.Context(), inst.Dir(), archiveFormat, c.Writer)
	if err != nil {
		h.recordExport(archiveFormat, "error")
		h.logger.Error("Export failed",
			zap.String("id", inst.ID()),
			zap.String("format", string(archiveFormat)),
			zap.Error(err))
		_ = c.Error(err)
		if !c.Writer.Written() {
			c.Header("Content-Disposition", "")
			c.Header("Content-Type", "")
			respondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	h.recordExport(archiveFormat, "success")
	h.logger.Debug("Exported instance",
		zap.String("id", inst.ID()),
		zap.Int("files", stats.Files),
		zap.Int64("bytes", stats.Bytes))
}

// Icon serves the instance's icon file
func (h *Handlers) Icon(c *gin.Context) {
	inst, ok := h.lookup(c)
	if !ok {
		return
	}

	icon, err := archive.FindIcon(inst.Dir())
	if errors.Is(err, archive.ErrNoIcon) {
		respondError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	f, err := os.Open(icon.Path)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), icon.MIME, f, nil)
}

// Groups maps each group name to the ids of its listed members
func (h *Handlers) Groups(c *gin.Context) {
	generation, instances := h.list.Current()
	groups := make(map[string][]string)
	for _, inst := range instances {
		if group := inst.Group(); group != "" {
			groups[group] = append(groups[group], inst.ID())
		}
	}
	for _, ids := range groups {
		sort.Strings(ids)
	}

	c.Header(GenerationHeader, generation)
	c.JSON(http.StatusOK, gin.H{
		"generation": generation,
		"groups":     groups,
	})
}

// Summary reports instance counts by group and type. ?sizes=true also
// measures every instance directory.
func (h *Handlers) Summary(c *gin.Context) {
	var sizer inventory.Sizer
	if c.Query("sizes") == "true" {
		sizer = h.sizer
	}

	generation, instances := h.list.Current()
	summary := inventory.Summarize(c.Request.Context(), generation, instances, sizer, h.logger)
	c.Header(GenerationHeader, generation)
	c.JSON(http.StatusOK, summary)
}

func (h *Handlers) lookup(c *gin.Context) (*types.Instance, bool) {
	inst, ok := h.list.GetByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "instance not found"})
		return nil, false
	}
	return inst, true
}

func (h *Handlers) recordExport(f archive.Format, status string) {
	if h.metrics != nil {
		h.metrics.RecordExport(string(f), status)
	}
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
