// Package results holds the marks and semester-results pipeline: ingesting
// teacher-submitted marks, publishing semester results and looking students
// up in the published document.
package results

import (
	"context"
	"errors"
	"time"

	"github.com/sachintanwar1/College-Management-System/internal/logger"
	"github.com/sachintanwar1/College-Management-System/internal/metrics"
	"github.com/sachintanwar1/College-Management-System/internal/model"
	"github.com/sachintanwar1/College-Management-System/internal/store"
)

var (
	ErrMalformed       = errors.New("malformed JSON payload")
	ErrNotArray        = errors.New("expecting top-level array of student objects")
	ErrNotObject       = errors.New("every student entry must be a JSON object")
	ErrNoResults       = errors.New("no semester results available")
	ErrStudentNotFound = errors.New("student not found")
)

// Mirror receives a copy of every saved document. Failures are logged only.
type Mirror interface {
	ReplaceMarks(ctx context.Context, records []model.Record) error
	ReplaceSemesterResults(ctx context.Context, records []model.Record) error
}

// Service reads and replaces the sessional marks and semester results documents.
type Service struct {
	docs   *store.Documents
	mirror Mirror
	now    func() time.Time
}

// NewService creates a service over docs. mirror may be nil.
func NewService(docs *store.Documents, mirror Mirror) *Service {
	return &Service{docs: docs, mirror: mirror, now: time.Now}
}

// Marks returns the stored sessional marks document.
func (s *Service) Marks() (model.Document, bool) {
	var doc model.Document
	ok := s.docs.Load(store.SessionalMarksDoc, &doc)
	return doc, ok
}

// Results returns the stored semester results document.
func (s *Service) Results() (model.Document, bool) {
	var doc model.Document
	ok := s.docs.Load(store.SemesterResultsDoc, &doc)
	return doc, ok
}

func (s *Service) stamp() string {
	return model.Timestamp(s.now())
}

func (s *Service) mirrorMarks(ctx context.Context, records []model.Record) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.ReplaceMarks(ctx, records); err != nil {
		metrics.MirrorErrors.WithLabelValues(store.SessionalMarksDoc).Inc()
		logger.LogError("mirror sessional marks failed", err)
	}
}

func (s *Service) mirrorResults(ctx context.Context, records []model.Record) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.ReplaceSemesterResults(ctx, records); err != nil {
		metrics.MirrorErrors.WithLabelValues(store.SemesterResultsDoc).Inc()
		logger.LogError("mirror semester results failed", err)
	}
}
