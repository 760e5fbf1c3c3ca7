package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Worker processes a single document job.
type Worker struct {
	processor *Processor
	library   *Library
	log       *slog.Logger
}

func NewWorker(processor *Processor, library *Library, log *slog.Logger) *Worker {
	return &Worker{
		processor: processor,
		library:   library,
		log:       log,
	}
}

// Process structures the job's file and stores the result in the library.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	defer job.releaseFileData()

	// Phase 1: Dedup check
	if existing, ok := w.library.FindByHash(job.ContentHash); ok {
		log.Info("duplicate document, skipping", "existing_doc_id", existing)
		job.SetResult(existing, 0, 0, nil)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Extract and structure
	job.SetStatus(StatusExtracting, "extracting")
	doc, err := w.processor.Process(ctx, job.FileData(), job.Filename)
	if err != nil {
		phase := "extracting"
		if errors.Is(err, ErrUnsupportedType) {
			phase = "type"
		}
		log.Error("processing failed", "error", err)
		job.AddError(fmt.Sprintf("process: %s", err))
		job.SetStatus(StatusFailed, phase)
		return
	}
	if job.Title != "" {
		doc.Title = job.Title
	}

	// Phase 3: Store. A concurrent job with the same bytes may have won.
	if existing, stored := w.library.PutIfAbsent(doc, job.ContentHash); !stored {
		log.Info("duplicate document stored concurrently, skipping", "existing_doc_id", existing)
		job.SetResult(existing, 0, 0, nil)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}
	job.SetResult(doc.ID, doc.Metadata.Pages, len(doc.Sections), doc.Warnings)
	log.Info("document stored", "doc_id", doc.ID, "sections", len(doc.Sections))

	if len(doc.Warnings) > 0 || doc.Metadata.Fallback {
		job.SetStatus(StatusPartial, "done")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}
