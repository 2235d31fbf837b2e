package attendance

import (
	"context"
	"time"

	"github.com/sachintanwar1/College-Management-System/internal/logger"
	"github.com/sachintanwar1/College-Management-System/internal/metrics"
	"github.com/sachintanwar1/College-Management-System/internal/queue"
)

// Archiver copies a local image to durable storage and returns its URL.
type Archiver interface {
	Archive(ctx context.Context, path, subfolder string) (string, error)
}

// Worker archives capture images announced on the queue and writes the
// resulting URL back into the attendance log.
type Worker struct {
	svc      *Service
	archiver Archiver
}

// NewWorker creates a worker. A nil archiver makes it drop every message.
func NewWorker(svc *Service, archiver Archiver) *Worker {
	return &Worker{svc: svc, archiver: archiver}
}

// Run consumes q until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	logger.LogInfo("capture worker started")
	for msg := range messages {
		if err := w.Handle(ctx, msg); err != nil {
			logger.LogError("capture archive failed", err, "image", string(msg.Body))
		}
		time.Sleep(10 * time.Millisecond)
	}
	logger.LogInfo("capture worker stopped")
	return nil
}

// Handle processes a single message. Unknown types are ignored.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeCaptureSaved || w.archiver == nil {
		return nil
	}
	image := string(msg.Body)
	url, err := w.archiver.Archive(ctx, image, CapturesSubdir)
	if err != nil {
		metrics.CaptureArchives.WithLabelValues("failed").Inc()
		return err
	}
	if err := w.svc.SetImageURL(ctx, image, url); err != nil {
		metrics.CaptureArchives.WithLabelValues("failed").Inc()
		return err
	}
	metrics.CaptureArchives.WithLabelValues("ok").Inc()
	logger.LogDebug("capture archived", "image", image, "url", url)
	return nil
}
