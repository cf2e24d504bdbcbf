package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/himanishpuri/ECGSegmenter/pkg/ecgdataset"
	"github.com/himanishpuri/ECGSegmenter/pkg/logger"
	"github.com/himanishpuri/ECGSegmenter/pkg/models"
	"github.com/himanishpuri/ECGSegmenter/pkg/utils"
)

type Logger = ecgdataset.Logger

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service ecgdataset.Service
	config  *ServerConfig
	log     Logger

	// writers of the sample root hold it exclusively, loads share it
	writeMu sync.RWMutex
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	SampleDir      string
	Range          int
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service ecgdataset.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondError writes an error response
func (s *Server) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

func toRecordDTO(r models.RecordInfo) RecordDTO {
	return RecordDTO{
		ID:        r.ID,
		Database:  r.Database,
		Name:      r.Name,
		Channel:   r.Channel,
		Range:     r.Range,
		Samples:   r.Samples,
		Events:    r.Events,
		Windows:   r.Windows,
		CreatedAt: r.CreatedAt,
	}
}

func toReportDTO(rr ecgdataset.RecordReport) RecordReportDTO {
	return RecordReportDTO{
		Name:     rr.Name,
		RecordID: rr.RecordID,
		Skipped:  rr.Skipped,
		Reason:   rr.Reason,
		Events:   rr.Events,
		Filtered: rr.Filtered,
		Unmapped: rr.Unmapped,
		Windows:  rr.Windows,
		Written:  rr.Written,
		Existing: rr.Existing,
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "ECG Segmenter API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"health":       "GET /health",
			"metrics":      "GET /api/health/metrics",
			"records":      "GET /api/records",
			"getRecord":    "GET /api/records/{id}",
			"deleteRecord": "DELETE /api/records/{id}",
			"segment":      "POST /api/segment",
			"dataset":      "GET /api/dataset",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(c *gin.Context) {
	records, err := s.service.ListRecords()
	if err != nil {
		s.log.Errorf("Failed to list records: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}
	counts, err := s.service.ClassCounts()
	if err != nil {
		s.log.Errorf("Failed to count windows: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	c.JSON(http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		SampleDir:    s.config.SampleDir,
		RecordCount:  len(records),
		WindowCounts: counts,
		Range:        s.config.Range,
	})
}

// handleListRecords handles GET /api/records
func (s *Server) handleListRecords(c *gin.Context) {
	records, err := s.service.ListRecords()
	if err != nil {
		s.log.Errorf("Failed to list records: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to retrieve records")
		return
	}

	dtos := make([]RecordDTO, len(records))
	for i, r := range records {
		dtos[i] = toRecordDTO(r)
	}
	c.JSON(http.StatusOK, ListRecordsResponse{
		Records: dtos,
		Count:   len(dtos),
	})
}

// handleGetRecord handles GET /api/records/{id}
func (s *Server) handleGetRecord(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsUUID(id) {
		s.respondError(c, http.StatusBadRequest, "Invalid record ID")
		return
	}
	rec, err := s.service.GetRecord(id)
	if err != nil {
		s.recordLookupError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, toRecordDTO(*rec))
}

// handleDeleteRecord handles DELETE /api/records/{id}
func (s *Server) handleDeleteRecord(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsUUID(id) {
		s.respondError(c, http.StatusBadRequest, "Invalid record ID")
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.service.GetRecord(id)
	if err != nil {
		s.recordLookupError(c, id, err)
		return
	}

	if err := s.service.DeleteRecord(id); err != nil {
		s.log.Errorf("Failed to delete record %s: %v", id, err)
		s.respondError(c, http.StatusInternalServerError, "Failed to delete record")
		return
	}

	s.log.Infof("Deleted record %s/%s (ID: %s)", rec.Database, rec.Name, id)
	c.JSON(http.StatusOK, DeleteRecordResponse{
		Message: "Record deleted successfully",
		ID:      id,
	})
}

func (s *Server) recordLookupError(c *gin.Context, id string, err error) {
	if errors.Is(err, ecgdataset.ErrRecordNotFound) {
		s.log.Warnf("Record not found: %s", id)
		s.respondError(c, http.StatusNotFound, fmt.Sprintf("Record with ID %s not found", id))
		return
	}
	s.log.Errorf("Failed to get record %s: %v", id, err)
	s.respondError(c, http.StatusInternalServerError, "Failed to retrieve record")
}

// handleSegment handles POST /api/segment
func (s *Server) handleSegment(c *gin.Context) {
	var req SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	resp := SegmentResponse{Database: req.Database}
	if req.Record != "" {
		rr, err := s.service.SegmentRecord(c.Request.Context(), req.Database, req.Record)
		if err != nil {
			s.segmentError(c, err)
			return
		}
		resp.Records = []RecordReportDTO{toReportDTO(*rr)}
		resp.Windows, resp.Written = rr.Windows, rr.Written
		if rr.Skipped {
			resp.Skipped = 1
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	report, err := s.service.Segment(c.Request.Context(), req.Database)
	if err != nil {
		s.segmentError(c, err)
		return
	}
	resp.Records = make([]RecordReportDTO, len(report.Records))
	for i, rr := range report.Records {
		resp.Records[i] = toReportDTO(rr)
	}
	resp.Windows, resp.Written, resp.Skipped = report.Totals()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) segmentError(c *gin.Context, err error) {
	s.log.Errorf("Segment failed: %v", err)
	if errors.Is(err, fs.ErrNotExist) {
		s.respondError(c, http.StatusNotFound, err.Error())
		return
	}
	s.respondError(c, http.StatusInternalServerError, fmt.Sprintf("Failed to segment: %v", err))
}

// handleDataset handles GET /api/dataset?inputs=N
func (s *Server) handleDataset(c *gin.Context) {
	inputs := 0
	if v := c.Query("inputs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(c, http.StatusBadRequest, "Invalid inputs parameter")
			return
		}
		inputs = n
	}

	s.writeMu.RLock()
	ds, err := s.service.Load(0, inputs)
	s.writeMu.RUnlock()
	if err != nil {
		if errors.Is(err, ecgdataset.ErrNoSamples) {
			s.respondError(c, http.StatusNotFound, "No samples found, segment a database first")
			return
		}
		s.log.Errorf("Failed to load dataset: %v", err)
		s.respondError(c, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	width := inputs
	if x := ds.Flatten(); width == 0 && len(x) > 0 {
		width = len(x[0])
	}
	c.JSON(http.StatusOK, DatasetResponse{
		Windows: ds.Len(),
		Skipped: ds.Skipped,
		Counts:  ds.Counts(),
		Width:   width,
	})
}
