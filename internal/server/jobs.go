package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Service) handleListJobs(c *gin.Context) {
	list, err := s.jobs.List()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list, "count": len(list)})
}

func (s *Service) handleGetJob(c *gin.Context) {
	job, err := s.jobs.Get(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Service) handleDeleteJob(c *gin.Context) {
	jobID := c.Param("id")
	if err := s.jobs.Delete(jobID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": jobID})
}

// handleJobData returns the cached rows for a job. Nothing cached (or
// expired) is an empty list, not an error.
func (s *Service) handleJobData(c *gin.Context) {
	data, err := s.batcher.Retrieve(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": data, "count": len(data)})
}
