// Package archive expands a ZIP upload into per-file ingestion runs. One
// member's failure is recorded in its result entry and never aborts the
// siblings; the coordinator's own response stays success-shaped.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docingest/constants"
	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/pipeline"
)

// FileOutcome is the per-member entry of an archive result.
type FileOutcome struct {
	FileName      string               `json:"fileName"`
	Format        constants.FileFormat `json:"format,omitempty"`
	TableName     string               `json:"tableName,omitempty"`
	RowsProcessed int                  `json:"rowsProcessed,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// Result is the aggregate response shape for an archive upload.
type Result struct {
	Success            bool                 `json:"success"`
	Format             constants.FileFormat `json:"format"`
	ZipFileName        string               `json:"zipFileName"`
	FilesProcessed     int                  `json:"filesProcessed"`
	TotalRowsProcessed int                  `json:"totalRowsProcessed"`
	Files              []FileOutcome        `json:"files"`
	JobIDs             []string             `json:"jobIds"`
}

type Coordinator struct {
	pipe *pipeline.Pipeline
	log  *slog.Logger
}

func NewCoordinator(pipe *pipeline.Pipeline, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{pipe: pipe, log: log}
}

// ProcessArchive extracts the archive to a temporary directory, runs the
// ingestion pipeline per member sequentially, and aggregates the outcomes.
// The temporary directory is removed unconditionally. An error is returned
// only when the archive itself cannot be opened or extracted.
func (c *Coordinator) ProcessArchive(ctx context.Context, zipBytes []byte, zipName string, batchSize int) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, common.ValidationError("cannot open archive " + zipName + ": " + err.Error())
	}

	tmpDir, err := os.MkdirTemp("", "docingest-zip-*")
	if err != nil {
		return nil, common.WrapError(err, "create temp dir")
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			c.log.Warn("archive.cleanup_error", "dir", tmpDir, "error", err)
		}
	}()

	if err := extractAll(zr, tmpDir); err != nil {
		return nil, err
	}

	archiveBase := pipeline.BaseName(zipName)
	result := &Result{
		Success:     true,
		Format:      constants.FormatZIP,
		ZipFileName: zipName,
		Files:       []FileOutcome{},
		JobIDs:      []string{},
	}

	members, err := listMembers(tmpDir)
	if err != nil {
		return nil, err
	}

	for _, path := range members {
		fileName := filepath.Base(path)
		c.processMember(ctx, result, archiveBase, path, fileName, batchSize)
	}

	c.log.Info("archive.done",
		"zip", zipName,
		"members", len(members),
		"processed", result.FilesProcessed,
		"rows", result.TotalRowsProcessed,
	)
	return result, nil
}

// processMember runs one member through the pipeline; failures are captured
// into the member's outcome entry, never propagated.
func (c *Coordinator) processMember(ctx context.Context, result *Result, archiveBase, path, fileName string, batchSize int) {
	content, err := os.ReadFile(path)
	if err != nil {
		result.Files = append(result.Files, FileOutcome{FileName: fileName, Error: err.Error()})
		return
	}
	if len(content) == 0 {
		result.Files = append(result.Files, FileOutcome{FileName: fileName, Error: "file content is empty"})
		return
	}

	tableName := pipeline.SanitizeTableName(archiveBase + "_" + pipeline.BaseName(fileName))
	jobID := uuid.New().String()
	result.JobIDs = append(result.JobIDs, jobID)

	res, err := c.pipe.Process(ctx, pipeline.UploadRequest{
		JobID:     jobID,
		FileName:  fileName,
		Content:   content,
		TableName: tableName,
		BatchSize: batchSize,
	})
	if err != nil {
		c.log.Warn("archive.member_failed", "file", fileName, "error", err)
		result.Files = append(result.Files, FileOutcome{
			FileName:  fileName,
			Format:    constants.DetectFormat(fileName),
			TableName: tableName,
			Error:     err.Error(),
		})
		return
	}

	result.FilesProcessed++
	result.TotalRowsProcessed += res.RowsProcessed
	result.Files = append(result.Files, FileOutcome{
		FileName:      fileName,
		Format:        res.Format,
		TableName:     res.TableName,
		RowsProcessed: res.RowsProcessed,
	})
}

// extractAll writes every archive entry below destDir, refusing paths that
// escape it.
func extractAll(zr *zip.Reader, destDir string) error {
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		target := filepath.Join(destDir, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, destDir+string(os.PathSeparator)) {
			return common.ValidationError("archive entry escapes extraction dir: " + f.Name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return common.WrapError(err, "create member dir")
		}
		rc, err := f.Open()
		if err != nil {
			return common.WrapError(err, "open archive member "+f.Name)
		}
		out, err := os.Create(target)
		if err != nil {
			_ = rc.Close()
			return common.WrapError(err, "create member file")
		}
		_, err = io.Copy(out, rc)
		_ = rc.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return common.WrapError(err, "write member file "+f.Name)
		}
	}
	return nil
}

// listMembers enumerates processable regular files: platform artifacts
// (hidden files, __MACOSX, Thumbs.db) and unprocessable extensions are
// skipped. Order is the walk order, so results are deterministic.
func listMembers(root string) ([]string, error) {
	var members []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		base := filepath.Base(path)
		if d.IsDir() {
			if base == "__MACOSX" || (strings.HasPrefix(base, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(base, ".") || strings.EqualFold(base, "Thumbs.db") {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(base))
		if _, skip := constants.SkippedArchiveExtensions[ext]; skip {
			return nil
		}
		members = append(members, path)
		return nil
	})
	if err != nil {
		return nil, common.WrapError(err, "walk extracted archive")
	}
	return members, nil
}
