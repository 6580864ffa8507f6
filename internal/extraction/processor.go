package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/dianihealth/carebridge/internal/core"
	objectclient "github.com/dianihealth/carebridge/internal/core/object-client"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

// Job identifies one uploaded file to ingest.
type Job struct {
	FileURL   string
	FileName  string
	PatientID string
}

// Outcome summarizes a completed ingestion, echoed back by the
// process-file endpoint.
type Outcome struct {
	FileType      string
	ContentLength int
	Chunks        int
}

// ProcessorStore is the persistence slice the processor needs beyond what the
// chunk writer already covers.
type ProcessorStore interface {
	DeleteFileContentsByPath(ctx context.Context, filePath string) error
}

// FileProcessor downloads, extracts and persists file content. Uploads
// enqueue background jobs; the process-file endpoint calls ProcessOne
// synchronously.
type FileProcessor struct {
	store     ProcessorStore
	obj       core.ObjectClient
	extractor Extractor
	chunks    *ChunkWriter
	bucket    string
	log       *logger.Logger
	jobs      chan Job
}

// NewFileProcessor constructs the processor with a bounded job queue (64).
func NewFileProcessor(store ProcessorStore, obj core.ObjectClient, extractor Extractor, chunks *ChunkWriter, bucket string, log *logger.Logger) *FileProcessor {
	return &FileProcessor{
		store:     store,
		obj:       obj,
		extractor: extractor,
		chunks:    chunks,
		bucket:    bucket,
		log:       log,
		jobs:      make(chan Job, 64),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel until the
// context is cancelled.
func (p *FileProcessor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					p.log.Info("file processor worker shutting down", "worker", w)
					return
				case job := <-p.jobs:
					p.log.Debug("processing file", "worker", w, "file", job.FileName)
					if _, err := p.ProcessOne(ctx, job); err != nil {
						p.log.Error("file processing failed", "file", job.FileName, "error", err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a file for background ingestion. Blocks when the queue is
// full.
func (p *FileProcessor) Enqueue(job Job) {
	p.jobs <- job
}

// ProcessOne downloads the blob, extracts its text and replaces the cache
// entries for the file path with freshly chunked content. A download failure
// still produces a cache row, holding the error placeholder.
func (p *FileProcessor) ProcessOne(ctx context.Context, job Job) (*Outcome, error) {
	procCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var content, fileType string
	key := objectclient.PathFromPublicURL(job.FileURL)
	data, err := p.obj.GetFile(procCtx, p.bucket, key)
	if err != nil {
		content = fmt.Sprintf("Error descargando archivo: %v", err)
		fileType = "unknown"
	} else {
		content, fileType = p.extractor.Extract(procCtx, data, job.FileName)
	}

	// Re-processing an upload is latest-wins: stale chunks for the same path
	// go first. Best effort; the insert below still runs if this fails.
	if err := p.store.DeleteFileContentsByPath(procCtx, job.FileURL); err != nil {
		p.log.Warn("stale chunk cleanup failed", "file", job.FileName, "error", err)
	}

	written := p.chunks.PersistChunks(procCtx, job.FileURL, job.FileName, job.PatientID, fileType, content)
	if written == 0 {
		return nil, fmt.Errorf("no chunks persisted for %s", job.FileName)
	}

	return &Outcome{FileType: fileType, ContentLength: len(content), Chunks: written}, nil
}
