package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/event"
	"github.com/garyjia/trash-inspection/internal/domain/workflow"
	"github.com/garyjia/trash-inspection/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Deps
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Deps, logger Logger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Details   interface{} `json:"details,omitempty"`
}

// EnqueueEventRequest is the body of POST /api/v1/events
type EnqueueEventRequest struct {
	Type          string `json:"type" binding:"required"`
	CaseID        int64  `json:"case_id" binding:"required"`
	CorrelationID string `json:"correlation_id"`
}

// EnqueueEventResponse identifies the queued event
type EnqueueEventResponse struct {
	EventID       string `json:"event_id"`
	Type          string `json:"type"`
	CaseID        int64  `json:"case_id"`
	CorrelationID string `json:"correlation_id"`
}

// CaseResponse is a case with its lifecycle state and inspection
type CaseResponse struct {
	Case       *entity.TrashInspectionCase `json:"case"`
	State      string                      `json:"state"`
	Inspection *entity.TrashInspection     `json:"inspection,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, details := true, interface{}(nil)
	if h.deps.Health != nil {
		healthy, details = h.deps.Health(c.Request.Context())
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Details:   details,
	}
	code := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, Response{
		Success: healthy,
		Data:    response,
	})
}

// EnqueueEvent handles POST /api/v1/events
func (h *Handlers) EnqueueEvent(c *gin.Context) {
	var req EnqueueEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	typ := event.Type(req.Type)
	var evt *event.Event
	if req.CorrelationID != "" {
		evt = event.NewEventWithCorrelation(typ, req.CaseID, req.CorrelationID)
	} else {
		evt = event.NewEvent(typ, req.CaseID)
	}
	if err := evt.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	if err := h.deps.Queue.Enqueue(c.Request.Context(), evt); err != nil {
		h.logger.Error("Failed to enqueue event", "event_type", req.Type, "case_id", req.CaseID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to enqueue event",
		})
		return
	}

	h.logger.Info("Event enqueued", "event_id", evt.ID, "event_type", req.Type, "case_id", req.CaseID)
	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data: EnqueueEventResponse{
			EventID:       evt.ID,
			Type:          evt.Type.String(),
			CaseID:        evt.CaseID,
			CorrelationID: evt.CorrelationID,
		},
	})
}

// GetCase handles GET /api/v1/cases/:sdkCaseId
func (h *Handlers) GetCase(c *gin.Context) {
	id, err := utils.ParseSdkCaseID(c.Param("sdkCaseId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	sdkCaseID := strconv.FormatInt(id, 10)

	tc, found, err := h.deps.Cases.GetBySdkCaseID(ctx, sdkCaseID)
	if err != nil {
		h.logger.Error("Failed to get case", "sdk_case_id", sdkCaseID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to get case",
		})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "case not found",
		})
		return
	}

	resp := CaseResponse{
		Case:  tc,
		State: workflow.StateFromStatus(tc.Status, tc.IsRetracted()).String(),
	}

	inspection, found, err := h.deps.Inspections.GetByID(ctx, tc.TrashInspectionID)
	if err != nil {
		h.logger.Error("Failed to get inspection", "inspection_id", tc.TrashInspectionID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to get inspection",
		})
		return
	}
	if found {
		resp.Inspection = inspection
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    resp,
	})
}

// QueueStats handles GET /api/v1/queue
func (h *Handlers) QueueStats(c *gin.Context) {
	stats, err := h.deps.Queue.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read queue stats", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to read queue stats",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    stats,
	})
}
