package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docingest/constants"
	"github.com/joseph-ayodele/docingest/internal/cache"
	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/extract"
	"github.com/joseph-ayodele/docingest/internal/jobs"
	"github.com/joseph-ayodele/docingest/internal/pipeline"
	"github.com/joseph-ayodele/docingest/internal/rows"
	"github.com/joseph-ayodele/docingest/internal/store"
)

// byFileExtractor succeeds with one element per file unless the filename is
// listed as failing.
type byFileExtractor struct {
	failing map[string]bool
}

func (e *byFileExtractor) Partition(ctx context.Context, fileName string, content []byte) ([]extract.Element, error) {
	if e.failing[fileName] {
		return nil, common.TransportError("extractor returned status 500", errors.New("simulated"))
	}
	return []extract.Element{
		{Type: "NarrativeText", Text: string(content)},
		{Type: "NarrativeText", Text: "second"},
	}, nil
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
	return m.tables[table], nil
}

func (m *memTableStore) TableStats(ctx context.Context, table string) (*store.TableStats, error) {
	return &store.TableStats{Table: table, RowCount: int64(len(m.tables[table]))}, nil
}

func (m *memTableStore) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	for name := range m.tables {
		names = append(names, name)
	}
	return names, nil
}

type fixture struct {
	coordinator *Coordinator
	registry    jobs.Registry
	tables      *memTableStore
}

func withCoordinator(t *testing.T, extractor pipeline.Extractor, action func(fx *fixture)) {
	t.Helper()
	m, err := miniredis.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	cacheStore := cache.NewRedisStoreFromClient(client, "test", nil)
	registry := jobs.NewRegistry(cacheStore, 24*time.Hour, nil)
	batcher := rows.NewBatcher(cacheStore, 100, 24*time.Hour, nil)
	tables := &memTableStore{tables: map[string][]rows.Row{}}
	pipe := pipeline.New(registry, batcher, extractor, tables, nil)
	action(&fixture{coordinator: NewCoordinator(pipe, nil), registry: registry, tables: tables})
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestArchiveAllFilesSucceed(t *testing.T) {
	withCoordinator(t, &byFileExtractor{}, func(fx *fixture) {
		zipBytes := buildZip(t, map[string]string{
			"a.csv": "aaa",
			"b.txt": "bbb",
		})

		res, err := fx.coordinator.ProcessArchive(context.Background(), zipBytes, "Bundle 2024.zip", 0)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, constants.FormatZIP, res.Format)
		assert.Equal(t, "Bundle 2024.zip", res.ZipFileName)
		assert.Equal(t, 2, res.FilesProcessed)
		assert.Equal(t, 4, res.TotalRowsProcessed)
		assert.Len(t, res.JobIDs, 2)

		// table names namespaced under the archive base name
		assert.Contains(t, fx.tables.tables, "bundle_2024_a")
		assert.Contains(t, fx.tables.tables, "bundle_2024_b")
	})
}

func TestArchivePartialFailureDoesNotAbortSiblings(t *testing.T) {
	withCoordinator(t, &byFileExtractor{failing: map[string]bool{"b.csv": true}}, func(fx *fixture) {
		zipBytes := buildZip(t, map[string]string{
			"a.csv": "aaa",
			"b.csv": "bbb",
			"c.csv": "ccc",
		})

		res, err := fx.coordinator.ProcessArchive(context.Background(), zipBytes, "batch.zip", 0)
		require.NoError(t, err)
		assert.True(t, res.Success, "the archive itself never fails")
		assert.Equal(t, 2, res.FilesProcessed)
		assert.Equal(t, 4, res.TotalRowsProcessed)
		require.Len(t, res.Files, 3)

		var failed *FileOutcome
		for i := range res.Files {
			if res.Files[i].Error != "" {
				failed = &res.Files[i]
			}
		}
		require.NotNil(t, failed)
		assert.Equal(t, "b.csv", failed.FileName)
		assert.Contains(t, failed.Error, "extractor returned status 500")

		// the failed member still has a failed job on record
		assert.Len(t, res.JobIDs, 3)
		failedJobs := 0
		for _, id := range res.JobIDs {
			job, err := fx.registry.Get(id)
			require.NoError(t, err)
			if job.Status == constants.JobStatusFailed {
				failedJobs++
			}
		}
		assert.Equal(t, 1, failedJobs)
	})
}

func TestArchiveSkipsPlatformArtifactsAndUnprocessables(t *testing.T) {
	withCoordinator(t, &byFileExtractor{}, func(fx *fixture) {
		zipBytes := buildZip(t, map[string]string{
			"real.csv":            "data",
			".hidden":             "skip",
			"__MACOSX/real.csv":   "skip",
			"sub/Thumbs.db":       "skip",
			"nested.zip":          "skip",
			"tool.exe":            "skip",
			"lib.dll":             "skip",
			"libnative.so":        "skip",
			"sub/included.txt":    "data",
			".hiddendir/file.csv": "skip",
		})

		res, err := fx.coordinator.ProcessArchive(context.Background(), zipBytes, "mixed.zip", 0)
		require.NoError(t, err)
		assert.Equal(t, 2, res.FilesProcessed)
		require.Len(t, res.Files, 2)
		names := []string{res.Files[0].FileName, res.Files[1].FileName}
		assert.ElementsMatch(t, []string{"real.csv", "included.txt"}, names)
	})
}

func TestArchiveInvalidZip(t *testing.T) {
	withCoordinator(t, &byFileExtractor{}, func(fx *fixture) {
		_, err := fx.coordinator.ProcessArchive(context.Background(), []byte("not a zip"), "bad.zip", 0)
		require.Error(t, err)
		assert.Equal(t, common.CodeValidation, common.CodeOf(err))
	})
}

func TestArchiveEmptyZipIsSuccessShaped(t *testing.T) {
	withCoordinator(t, &byFileExtractor{}, func(fx *fixture) {
		res, err := fx.coordinator.ProcessArchive(context.Background(), buildZip(t, nil), "empty.zip", 0)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 0, res.FilesProcessed)
		assert.Empty(t, res.Files)
		assert.Empty(t, res.JobIDs)
	})
}
