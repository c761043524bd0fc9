package integration_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"leadflow/internal/database"
	"leadflow/internal/grouper"
	"leadflow/internal/models"
	"leadflow/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// TestEnvironment wires the full pipeline against a real on-disk SQLite
// database, the way the binaries do.
type TestEnvironment struct {
	t      *testing.T
	tmpDir string

	DB     *database.Database
	Ingest *service.IngestService
	Batch  *service.BatchProcessor
}

func NewTestEnvironment(t *testing.T, readyThreshold int) *TestEnvironment {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "leadflow-integration")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	db, err := database.New(filepath.Join(tmpDir, "leadflow.db"))
	require.NoError(t, err)

	grp, err := grouper.New(db, readyThreshold, logger)
	require.NoError(t, err)

	ingest, err := service.NewIngestService(db, grp, logger)
	require.NoError(t, err)

	return &TestEnvironment{
		t:      t,
		tmpDir: tmpDir,
		DB:     db,
		Ingest: ingest,
		Batch:  service.NewBatchProcessor(ingest, logger),
	}
}

func (env *TestEnvironment) Cleanup() {
	_ = env.DB.Close()
	_ = os.RemoveAll(env.tmpDir)
}

// EventDir creates a directory of captured event files for batch runs.
func (env *TestEnvironment) EventDir(name string) string {
	dir := filepath.Join(env.tmpDir, name)
	require.NoError(env.t, os.MkdirAll(dir, 0755))
	return dir
}

// WriteEvent stores one event wrapped in the exporter envelope.
func (env *TestEnvironment) WriteEvent(dir, file string, event models.RawMessage) {
	env.t.Helper()
	payload, err := json.Marshal(map[string]interface{}{"data": event})
	require.NoError(env.t, err)
	require.NoError(env.t, os.WriteFile(filepath.Join(dir, file), payload, 0644))
}

// ChatEvent builds a realistic captured webhook event.
func ChatEvent(id, from, to, senderType string, epoch int64, body string) models.RawMessage {
	return models.RawMessage{
		"id":          id,
		"from":        from,
		"to":          to,
		"sender_type": senderType,
		"timestamp":   float64(epoch),
		"text":        map[string]interface{}{"body": body},
	}
}
