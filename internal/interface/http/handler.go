package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/carefinder/internal/domain/evaluation"
	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/domain/recommender"
	apperrors "github.com/yanqian/carefinder/pkg/errors"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	recommenderSvc recommender.Service
	evaluationSvc  evaluation.Service
	jobs           hospital.JobQueue
	logger         *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(recommenderSvc recommender.Service, evaluationSvc evaluation.Service, jobs hospital.JobQueue, logger *slog.Logger) *Handler {
	return &Handler{
		recommenderSvc: recommenderSvc,
		evaluationSvc:  evaluationSvc,
		jobs:           jobs,
		logger:         logger.With("component", "http.handler"),
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// States lists the states that have at least one rated hospital.
func (h *Handler) States(c *gin.Context) {
	states, err := h.recommenderSvc.States(c.Request.Context())
	if err != nil {
		abortWithError(c, domainError(err, "states_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"states": states})
}

// Recommend ranks hospitals in one state against the requested ratings.
func (h *Handler) Recommend(c *gin.Context) {
	var req recommender.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.recommenderSvc.Recommend(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err, "recommend_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Evaluate runs a batch evaluation. Pass ?rows=false to return only the aggregates.
func (h *Handler) Evaluate(c *gin.Context) {
	var req evaluation.Request
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
			return
		}
	}

	report, err := h.evaluationSvc.Evaluate(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err, "evaluation_failed"))
		return
	}
	if c.Query("rows") == "false" {
		report.Rows = nil
	}
	c.JSON(http.StatusOK, report)
}

// RefreshCatalog queues a background reload of the hospital table.
func (h *Handler) RefreshCatalog(c *gin.Context) {
	payload := map[string]any{
		"requestedBy": c.ClientIP(),
		"requestedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.jobs.Enqueue(c.Request.Context(), hospital.JobRefresh, payload); err != nil {
		abortWithError(c, NewHTTPError(http.StatusServiceUnavailable, "queue_unavailable", "could not queue catalog refresh", err))
		return
	}
	h.logger.Info("catalog refresh queued", "requested_by", payload["requestedBy"])
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "job": hospital.JobRefresh})
}

// domainError maps AppError codes onto HTTP statuses.
func domainError(err error, fallbackCode string) *HTTPError {
	code := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeInvalidInput:
		return NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err)
	case apperrors.CodeInvalidTable:
		return NewHTTPError(http.StatusBadGateway, code, "hospital data failed validation", err)
	case apperrors.CodeCatalog, apperrors.CodeSource:
		return NewHTTPError(http.StatusServiceUnavailable, "catalog_unavailable", "hospital data is unavailable", err)
	default:
		return NewHTTPError(http.StatusInternalServerError, fallbackCode, errMessage(err), err)
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
