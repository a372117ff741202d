package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/pipeline"
)

// handleUpload ingests one multipart upload: ZIP archives fan out through the
// batch coordinator, everything else runs the single-file pipeline. The work
// is driven on a context detached from the request, so a caller disconnecting
// does not halt in-flight extraction or persistence.
func (s *Service) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, common.ValidationError("multipart field 'file' is required"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		s.writeError(c, common.WrapError(err, "open upload"))
		return
	}
	content, err := io.ReadAll(f)
	closeErr := f.Close()
	if err != nil {
		s.writeError(c, common.WrapError(err, "read upload"))
		return
	}
	if closeErr != nil {
		s.log.Warn("server.upload_close_error", "error", closeErr)
	}

	tableName := c.PostForm("table_name")
	batchSize := 0
	if v := c.PostForm("batch_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(c, common.ValidationError("batch_size must be a positive integer"))
			return
		}
		batchSize = n
	}

	ctx := context.WithoutCancel(c.Request.Context())
	fileName := fileHeader.Filename

	if strings.EqualFold(strings.TrimPrefix(extOf(fileName), "."), "zip") {
		result, err := s.coordinator.ProcessArchive(ctx, content, fileName, batchSize)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	result, err := s.pipe.Process(ctx, pipeline.UploadRequest{
		FileName:  fileName,
		Content:   content,
		TableName: tableName,
		BatchSize: batchSize,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func extOf(fileName string) string {
	if i := strings.LastIndex(fileName, "."); i >= 0 {
		return fileName[i:]
	}
	return ""
}
