// Package server is the HTTP front door: upload, job visibility, table reads,
// and export. It holds no pipeline logic of its own.
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docingest/internal/archive"
	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/export"
	"github.com/joseph-ayodele/docingest/internal/jobs"
	"github.com/joseph-ayodele/docingest/internal/pipeline"
	"github.com/joseph-ayodele/docingest/internal/registry"
	"github.com/joseph-ayodele/docingest/internal/rows"
	"github.com/joseph-ayodele/docingest/internal/store"
)

type Service struct {
	pipe        *pipeline.Pipeline
	coordinator *archive.Coordinator
	jobs        jobs.Registry
	batcher     *rows.Batcher
	tables      store.TableStore
	exporter    *export.Service
	services    *registry.Registry
	log         *slog.Logger
}

func NewService(
	pipe *pipeline.Pipeline,
	coordinator *archive.Coordinator,
	jobRegistry jobs.Registry,
	batcher *rows.Batcher,
	tables store.TableStore,
	exporter *export.Service,
	services *registry.Registry,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pipe:        pipe,
		coordinator: coordinator,
		jobs:        jobRegistry,
		batcher:     batcher,
		tables:      tables,
		exporter:    exporter,
		services:    services,
		log:         log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Service) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/upload", s.handleUpload)

		v1.GET("/jobs", s.handleListJobs)
		v1.GET("/jobs/:id", s.handleGetJob)
		v1.DELETE("/jobs/:id", s.handleDeleteJob)
		v1.GET("/jobs/:id/data", s.handleJobData)

		v1.GET("/tables", s.handleListTables)
		v1.GET("/tables/:name", s.handleQueryTable)
		v1.GET("/tables/:name/stats", s.handleTableStats)
		v1.GET("/tables/:name/export", s.handleExportTable)

		v1.GET("/services", s.handleListServices)
	}
	return r
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps the error taxonomy onto HTTP statuses. The immediate
// cause's message is exposed; stack traces are not.
func (s *Service) writeError(c *gin.Context, err error) {
	code := common.CodeOf(err)
	status := http.StatusInternalServerError
	switch {
	case code == common.CodeValidation || errors.Is(err, common.ErrValidation) || errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case code == common.CodeNotFound || errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case code == common.CodeTransport:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": errorBody{Code: code, Message: err.Error()}})
}
