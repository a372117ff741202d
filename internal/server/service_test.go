package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docingest/internal/archive"
	"github.com/joseph-ayodele/docingest/internal/cache"
	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/export"
	"github.com/joseph-ayodele/docingest/internal/extract"
	"github.com/joseph-ayodele/docingest/internal/jobs"
	"github.com/joseph-ayodele/docingest/internal/pipeline"
	"github.com/joseph-ayodele/docingest/internal/registry"
	"github.com/joseph-ayodele/docingest/internal/rows"
	"github.com/joseph-ayodele/docingest/internal/store"
)

type stubExtractor struct{}

func (stubExtractor) Partition(ctx context.Context, fileName string, content []byte) ([]extract.Element, error) {
	return []extract.Element{{Type: "NarrativeText", Text: string(content)}}, nil
}

type memTableStore struct {
	tables map[string][]rows.Row
}

func (m *memTableStore) EnsureTable(ctx context.Context, table string, columns []string) error {
	if _, ok := m.tables[table]; !ok {
		m.tables[table] = nil
	}
	return nil
}

func (m *memTableStore) InsertRows(ctx context.Context, table string, columns []string, data []rows.Row, batchSize int) (int, error) {
	m.tables[table] = append(m.tables[table], data...)
	return len(data), nil
}

func (m *memTableStore) QueryRows(ctx context.Context, table string, limit int) ([]rows.Row, error) {
	data, ok := m.tables[table]
	if !ok {
		return nil, common.NotFoundErrorf("table %s not found", table)
	}
	return data, nil
}

func (m *memTableStore) TableStats(ctx context.Context, table string) (*store.TableStats, error) {
	data, ok := m.tables[table]
	if !ok {
		return nil, common.NotFoundErrorf("table %s not found", table)
	}
	return &store.TableStats{Table: table, RowCount: int64(len(data))}, nil
}

func (m *memTableStore) ListTables(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	return names, nil
}

func withServer(t *testing.T, action func(router *gin.Engine, reg jobs.Registry)) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := miniredis.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	cacheStore := cache.NewRedisStoreFromClient(client, "test", nil)
	jobRegistry := jobs.NewRegistry(cacheStore, 24*time.Hour, nil)
	batcher := rows.NewBatcher(cacheStore, 100, 24*time.Hour, nil)
	tables := &memTableStore{tables: map[string][]rows.Row{}}
	pipe := pipeline.New(jobRegistry, batcher, stubExtractor{}, tables, nil)
	coordinator := archive.NewCoordinator(pipe, nil)
	exporter := export.NewService(tables, nil)

	services := registry.New()
	services.Register("extractor", "http://extractor:8000")

	svc := NewService(pipe, coordinator, jobRegistry, batcher, tables, exporter, services, nil)
	action(svc.Router(), jobRegistry)
}

func multipartUpload(t *testing.T, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	withServer(t, func(router *gin.Engine, reg jobs.Registry) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestUploadSingleFile(t *testing.T) {
	withServer(t, func(router *gin.Engine, reg jobs.Registry) {
		body, contentType := multipartUpload(t, "report.csv", []byte("data"))
		req := httptest.NewRequest(http.MethodPost, "/v1/upload", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var res pipeline.UploadResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.True(t, res.Success)
		assert.Equal(t, "report", res.TableName)
		assert.Equal(t, 1, res.RowsProcessed)

		job, err := reg.Get(res.JobID)
		require.NoError(t, err)
		assert.Equal(t, "report.csv", job.FileName)
	})
}

func TestUploadMissingFileField(t *testing.T) {
	withServer(t, func(router *gin.Engine, reg jobs.Registry) {
		req := httptest.NewRequest(http.MethodPost, "/v1/upload", bytes.NewReader(nil))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetUnknownJobIs404(t *testing.T) {
	withServer(t, func(router *gin.Engine, reg jobs.Registry) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/jobs/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)

		var body struct {
			Error errorBody `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, common.CodeNotFound, body.Error.Code)
	})
}

func TestJobDataEmptyIsOK(t *testing.T) {
	withServer(t, func(router *gin.Engine, reg jobs.Registry) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/jobs/never-cached/data", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Rows  []rows.Row `json:"rows"`
			Count int        `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 0, body.Count)
	})
}

func TestUnknownTableStatsIs404(t *testing.T) {
	withServer(t, func(router *gin.Engine, reg jobs.Registry) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tables/nope/stats", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBadLimitParamIs400(t *testing.T) {
	withServer(t, func(router *gin.Engine, reg jobs.Registry) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tables/t?limit=-1", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServicesSnapshot(t *testing.T) {
	withServer(t, func(router *gin.Engine, reg jobs.Registry) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/services", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Services []registry.Service `json:"services"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Services, 1)
		assert.Equal(t, "extractor", body.Services[0].Name)
	})
}
