package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/RishiKendai/argus/internal/config"
	"github.com/RishiKendai/argus/internal/detector"
	"github.com/RishiKendai/argus/internal/models"
	"github.com/RishiKendai/argus/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handler holds dependencies for handlers
type Handler struct {
	cfg         *config.Config
	detector    *detector.Detector
	reportsRepo *repository.ReportsRepository
}

// NewHandler creates a new handler
func NewHandler(
	cfg *config.Config,
	det *detector.Detector,
	reportsRepo *repository.ReportsRepository,
) *Handler {
	return &Handler{
		cfg:         cfg,
		detector:    det,
		reportsRepo: reportsRepo,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"submissions": h.detector.Count(),
	})
}

// Ingest accepts one submission and runs the full pipeline synchronously.
func (h *Handler) Ingest(c *gin.Context) {
	var req models.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.detector.Ingest(req.SubmissionID, req.SourceCode, req.Language, req.Label)
	if err != nil {
		if errors.Is(err, detector.ErrDuplicateID) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error: err.Error(),
				Code:  "DUPLICATE_ID",
			})
			return
		}
		log.Error().Err(err).Str("submissionId", req.SubmissionID).Msg("Failed to ingest submission")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to ingest submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	// Archive asynchronously; the in-memory commit already succeeded.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		audit := &models.IngestAudit{
			SubmissionID: result.SubmissionID,
			ClusterID:    result.ClusterID,
			EdgeCount:    result.EdgeCount,
			Degraded:     result.Degraded,
			Source:       "api",
		}
		if err := h.reportsRepo.InsertIngestAudit(ctx, audit); err != nil {
			log.Error().Err(err).Str("submissionId", result.SubmissionID).Msg("Failed to archive ingest audit")
		}
	}()

	c.JSON(http.StatusCreated, models.IngestResponse{
		SubmissionID: result.SubmissionID,
		ClusterID:    result.ClusterID,
		EdgeCount:    result.EdgeCount,
		Degraded:     result.Degraded,
	})
}

// GetSubmission returns the metadata record of one submission.
func (h *Handler) GetSubmission(c *gin.Context) {
	id := c.Param("id")

	record, err := h.detector.LookupMetadata(id)
	if err != nil {
		if errors.Is(err, detector.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: err.Error(),
				Code:  "SUBMISSION_NOT_FOUND",
			})
			return
		}
		log.Error().Err(err).Str("submissionId", id).Msg("Failed to look up submission")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to look up submission",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetFragments returns the shared token runs between two submissions.
func (h *Handler) GetFragments(c *gin.Context) {
	id := c.Param("id")
	other := c.Param("other")

	fragments, err := h.detector.Fragments(id, other)
	if err != nil {
		if errors.Is(err, detector.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: err.Error(),
				Code:  "SUBMISSION_NOT_FOUND",
			})
			return
		}
		log.Error().Err(err).Str("submissionId", id).Str("other", other).Msg("Failed to compute fragments")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to compute fragments",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissionA": id,
		"submissionB": other,
		"fragments":   fragments,
	})
}

// GetMatrix returns every similarity pair at or above the threshold.
func (h *Handler) GetMatrix(c *gin.Context) {
	pairs := h.detector.SimilarityMatrix()
	c.JSON(http.StatusOK, gin.H{
		"threshold": h.cfg.SimilarityThreshold,
		"pairs":     pairs,
	})
}

// GetClusters returns every cluster with its members and representative.
func (h *Handler) GetClusters(c *gin.Context) {
	clusters := h.detector.Clusters()
	c.JSON(http.StatusOK, gin.H{
		"total":    len(clusters),
		"clusters": clusters,
	})
}

// RangeBySimilarity streams metadata records whose average intra-cluster
// similarity lies in [lo, hi].
func (h *Handler) RangeBySimilarity(c *gin.Context) {
	lo, errLo := strconv.ParseFloat(c.DefaultQuery("lo", "0"), 64)
	hi, errHi := strconv.ParseFloat(c.DefaultQuery("hi", "1"), 64)
	if errLo != nil || errHi != nil || lo > hi {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "lo and hi must be numbers with lo <= hi",
			Code:  "INVALID_RANGE",
		})
		return
	}

	records, err := h.detector.RangeQueryBySimilarity(lo, hi)
	if err != nil {
		log.Error().Err(err).Msg("Range query failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Metadata index is corrupted",
			Code:  "INDEX_CORRUPTION",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lo":      lo,
		"hi":      hi,
		"records": records,
	})
}

// GenerateReport snapshots the cluster state and persists it.
func (h *Handler) GenerateReport(c *gin.Context) {
	clusters := h.detector.Clusters()

	flagged := 0
	for _, cl := range clusters {
		if len(cl.Members) > 1 {
			flagged++
		}
	}

	report := &models.ClusterReport{
		ReportID:         uuid.New().String(),
		TotalSubmissions: h.detector.Count(),
		TotalClusters:    len(clusters),
		FlaggedClusters:  flagged,
		Clusters:         clusters,
	}

	if err := h.reportsRepo.InsertClusterReport(c.Request.Context(), report); err != nil {
		log.Error().Err(err).Msg("Failed to persist cluster report")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to persist cluster report",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusCreated, report)
}

// GetLatestReport returns the most recently persisted cluster report.
func (h *Handler) GetLatestReport(c *gin.Context) {
	report, err := h.reportsRepo.GetLatestClusterReport(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch latest report")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to fetch latest report",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "No report generated yet",
			Code:  "REPORT_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
