package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"leadflow/internal/models"
	"leadflow/internal/security"

	"github.com/sirupsen/logrus"
)

// FileResult is the per-file outcome of a batch run.
type FileResult struct {
	File           string `json:"file"`
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BatchSummary aggregates a directory run.
type BatchSummary struct {
	Processed  int          `json:"processed"`
	Duplicates int          `json:"duplicates"`
	Failures   int          `json:"failures"`
	Results    []FileResult `json:"results"`
}

// BatchProcessor replays captured webhook payloads from disk through the
// ingest pipeline. Each *.json file holds one event, either wrapped in a
// {"data": ...} envelope or as the bare raw object.
type BatchProcessor struct {
	ingest *IngestService
	logger *logrus.Logger
}

func NewBatchProcessor(ingest *IngestService, logger *logrus.Logger) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	return &BatchProcessor{ingest: ingest, logger: logger}
}

// ProcessDirectory runs every *.json file in dir through the pipeline in
// lexical order. A failing file is recorded and skipped; it never halts the
// run. With force set, known message ids are overwritten and re-grouped.
func (b *BatchProcessor) ProcessDirectory(ctx context.Context, dir string, force bool) (*BatchSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	summary := &BatchSummary{}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var result FileResult
		if err := security.ValidateFilePathWithBase(name, dir); err != nil {
			result = FileResult{Status: IngestStatusError, Error: err.Error()}
		} else {
			result = b.processFile(ctx, filepath.Join(dir, name), force)
		}
		result.File = name
		summary.Results = append(summary.Results, result)

		switch result.Status {
		case IngestStatusProcessed:
			summary.Processed++
		case IngestStatusDuplicate:
			summary.Duplicates++
		default:
			summary.Failures++
		}

		b.logger.WithFields(logrus.Fields{
			LogFieldFileName: name,
			LogFieldStatus:   result.Status,
		}).Info("Batch file completed")
	}

	b.logger.WithFields(logrus.Fields{
		LogFieldFilePath: dir,
		"processed":      summary.Processed,
		"duplicates":     summary.Duplicates,
		"failures":       summary.Failures,
	}).Info("Batch run completed")

	return summary, nil
}

func (b *BatchProcessor) processFile(ctx context.Context, path string, force bool) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Status: IngestStatusError, Error: err.Error()}
	}

	raw, err := decodeEvent(data)
	if err != nil {
		return FileResult{Status: IngestStatusError, Error: err.Error()}
	}

	result, err := b.ingest.ProcessRaw(ctx, raw, force)
	if err != nil {
		return FileResult{Status: IngestStatusError, Error: err.Error()}
	}

	out := FileResult{Status: result.Status}
	if result.Group != nil {
		out.ConversationID = result.Group.ConversationID
	}
	return out
}

// decodeEvent accepts both the {"data": {...}} envelope the webhook delivers
// and a bare raw event object.
func decodeEvent(data []byte) (models.RawMessage, error) {
	var envelope models.WebhookEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.HasData() {
		return envelope.Data, nil
	}

	var raw models.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	return raw, nil
}
