// Package telemetry persists ingestion batch reports to Parquet files for
// offline inspection. Records are buffered and flushed in batches; each
// flush writes one timestamped file under the output directory.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/graphweave/graphweave/pkg/types"
)

// IngestRecord is the flattened Parquet row for one batch report.
type IngestRecord struct {
	ID               string    `parquet:"id"`
	Timestamp        time.Time `parquet:"timestamp"`
	SourceID         string    `parquet:"source_id"`
	Seq              int64     `parquet:"seq"`
	MentionsResolved int       `parquet:"mentions_resolved"`
	EntitiesCreated  int       `parquet:"entities_created"`
	RelationsAdded   int       `parquet:"relations_added"`
	RelationsMerged  int       `parquet:"relations_merged"`
	Skipped          bool      `parquet:"skipped"`
	Issues           int       `parquet:"issues"`
}

// Recorder buffers ingestion reports and writes them out as Parquet.
type Recorder struct {
	outputDir string

	mu        sync.Mutex
	buffer    []IngestRecord
	batchSize int
}

// NewRecorder creates a recorder writing under outputDir, creating the
// directory if needed.
func NewRecorder(outputDir string) (*Recorder, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create telemetry directory: %w", err)
	}
	return &Recorder{
		outputDir: outputDir,
		batchSize: 100,
		buffer:    make([]IngestRecord, 0, 100),
	}, nil
}

// Record buffers one batch report, flushing when the buffer fills.
func (r *Recorder) Record(report *types.BatchReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, IngestRecord{
		ID:               uuid.NewString(),
		Timestamp:        time.Now().UTC(),
		SourceID:         report.SourceID,
		Seq:              int64(report.Seq),
		MentionsResolved: report.MentionsResolved,
		EntitiesCreated:  report.EntitiesCreated,
		RelationsAdded:   report.RelationsAdded,
		RelationsMerged:  report.RelationsMerged,
		Skipped:          report.Skipped,
		Issues:           len(report.Issues),
	})
	if len(r.buffer) >= r.batchSize {
		return r.flushLocked()
	}
	return nil
}

// Flush writes any buffered records immediately.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

// Close flushes remaining records.
func (r *Recorder) Close() error {
	return r.Flush()
}

func (r *Recorder) flushLocked() error {
	if len(r.buffer) == 0 {
		return nil
	}
	filename := filepath.Join(r.outputDir,
		fmt.Sprintf("ingest_%s_%s.parquet", time.Now().UTC().Format("20060102_150405"), uuid.NewString()[:8]))
	if err := parquet.WriteFile(filename, r.buffer); err != nil {
		return fmt.Errorf("write telemetry parquet: %w", err)
	}
	r.buffer = r.buffer[:0]
	return nil
}
