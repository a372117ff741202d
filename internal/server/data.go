package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docingest/internal/common"
)

func (s *Service) handleListTables(c *gin.Context) {
	tables, err := s.tables.ListTables(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables, "count": len(tables)})
}

func (s *Service) handleQueryTable(c *gin.Context) {
	limit, err := limitParam(c, 100)
	if err != nil {
		s.writeError(c, err)
		return
	}
	data, err := s.tables.QueryRows(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": data, "count": len(data)})
}

func (s *Service) handleTableStats(c *gin.Context) {
	stats, err := s.tables.TableStats(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Service) handleExportTable(c *gin.Context) {
	limit, err := limitParam(c, 10000)
	if err != nil {
		s.writeError(c, err)
		return
	}
	name := c.Param("name")
	data, err := s.exporter.ExportTableXLSX(c.Request.Context(), name, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *Service) handleListServices(c *gin.Context) {
	services, connections := s.services.Snapshot()
	c.JSON(http.StatusOK, gin.H{"services": services, "connections": connections})
}

func limitParam(c *gin.Context, def int) (int, error) {
	v := c.Query("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, common.ValidationError("limit must be a positive integer")
	}
	return n, nil
}
