// Package attendance captures attendance images, identifies them through a
// Matcher and keeps the attendance log.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sachintanwar1/College-Management-System/internal/imagefile"
	"github.com/sachintanwar1/College-Management-System/internal/logger"
	"github.com/sachintanwar1/College-Management-System/internal/metrics"
	"github.com/sachintanwar1/College-Management-System/internal/model"
	"github.com/sachintanwar1/College-Management-System/internal/queue"
	"github.com/sachintanwar1/College-Management-System/internal/store"
)

var (
	ErrNoImage        = errors.New("no image provided")
	ErrSaveImage      = errors.New("failed to save image")
	ErrRecordNotFound = errors.New("attendance record not found")
)

// CapturesSubdir is where capture images are stored under the uploads dir.
const CapturesSubdir = "captures"

const (
	demoName   = "Demo Student"
	demoPrefix = "DEMO-"
)

// Capture is one incoming capture. DataURL takes precedence over File.
type Capture struct {
	DataURL  string
	File     io.Reader
	Filename string
}

// Mirror receives the full attendance log after every change.
type Mirror interface {
	ReplaceAttendance(ctx context.Context, records []model.AttendanceRecord) error
}

// Service persists captures and the attendance log.
type Service struct {
	docs        *store.Documents
	capturesDir string
	matcher     Matcher
	queue       queue.Queue
	mirror      Mirror
	now         func() time.Time
}

// NewService creates a service storing images under uploadsDir/captures.
// matcher defaults to DemoMatcher; q and mirror may be nil.
func NewService(docs *store.Documents, uploadsDir string, matcher Matcher, q queue.Queue, mirror Mirror) *Service {
	if matcher == nil {
		matcher = DemoMatcher{}
	}
	return &Service{
		docs:        docs,
		capturesDir: filepath.Join(uploadsDir, CapturesSubdir),
		matcher:     matcher,
		queue:       q,
		mirror:      mirror,
		now:         time.Now,
	}
}

// Capture stores the image, identifies it and appends a present record.
func (s *Service) Capture(ctx context.Context, in Capture) (model.AttendanceRecord, error) {
	path, err := s.saveImage(in)
	if err != nil {
		outcome := "save_failed"
		if errors.Is(err, ErrNoImage) {
			outcome = "no_image"
		}
		metrics.AttendanceCaptures.WithLabelValues(outcome).Inc()
		return model.AttendanceRecord{}, err
	}

	now := s.now().UTC()
	match, err := s.matcher.Identify(ctx, path)
	if err != nil {
		logger.LogWarn("face match failed, recording as unmatched", "image", path, "error", err)
		match = Match{}
	}

	rec := model.AttendanceRecord{
		Status: model.StatusPresent,
		TS:     model.Timestamp(now),
		Image:  filepath.ToSlash(path),
	}
	outcome := "matched"
	if match.Matched {
		rec.ID, rec.Name = match.ID, match.Name
		if rec.Name == "" {
			rec.Name = match.ID
		}
	} else {
		outcome = "unmatched"
		rec.ID = demoPrefix + now.Format("20060102150405")
		rec.Name = demoName
	}

	var records []model.AttendanceRecord
	err = s.docs.Update(store.AttendanceDoc, &records, func() error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("append attendance: %w", err)
	}
	metrics.AttendanceCaptures.WithLabelValues(outcome).Inc()
	s.sync(ctx, records)

	if s.queue != nil {
		msg := queue.Message{Type: queue.TypeCaptureSaved, Body: []byte(rec.Image)}
		if err := s.queue.Publish(ctx, msg); err != nil {
			logger.LogError("publish capture event failed", err, "image", rec.Image)
		}
	}
	return rec, nil
}

// List returns every attendance record, or an empty list.
func (s *Service) List() []model.AttendanceRecord {
	records := []model.AttendanceRecord{}
	s.docs.Load(store.AttendanceDoc, &records)
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	return records
}

// Clear empties the attendance log.
func (s *Service) Clear(ctx context.Context) error {
	records := []model.AttendanceRecord{}
	err := s.docs.Update(store.AttendanceDoc, &records, func() error {
		records = []model.AttendanceRecord{}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}
	s.sync(ctx, records)
	return nil
}

// SetImageURL records the archived URL on the capture stored at image.
func (s *Service) SetImageURL(ctx context.Context, image, url string) error {
	var records []model.AttendanceRecord
	err := s.docs.Update(store.AttendanceDoc, &records, func() error {
		for i := range records {
			if records[i].Image == image {
				records[i].ImageURL = url
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrRecordNotFound, image)
	})
	if err != nil {
		return err
	}
	s.sync(ctx, records)
	return nil
}

func (s *Service) saveImage(in Capture) (string, error) {
	now := s.now()
	switch {
	case in.DataURL != "":
		if !imagefile.IsDataURL(in.DataURL) {
			return "", ErrNoImage
		}
		img, err := imagefile.ParseDataURL(in.DataURL)
		if err != nil {
			logger.LogWarn("capture decode failed", "error", err)
			return "", fmt.Errorf("%w: %v", ErrSaveImage, err)
		}
		name := imagefile.UniqueName("capture", "capture."+img.Extension(), now)
		path, err := imagefile.Write(s.capturesDir, name, img.Data)
		if err != nil {
			logger.LogError("capture write failed", err)
			return "", fmt.Errorf("%w: %v", ErrSaveImage, err)
		}
		return path, nil
	case in.File != nil:
		orig := in.Filename
		if imagefile.SecureFilename(orig) == "" {
			orig = "capture.jpg"
		}
		path, err := imagefile.Copy(s.capturesDir, imagefile.UniqueName("capture", orig, now), in.File)
		if err != nil {
			logger.LogError("capture write failed", err)
			return "", fmt.Errorf("%w: %v", ErrSaveImage, err)
		}
		return path, nil
	}
	return "", ErrNoImage
}

func (s *Service) sync(ctx context.Context, records []model.AttendanceRecord) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.ReplaceAttendance(ctx, records); err != nil {
		metrics.MirrorErrors.WithLabelValues(store.AttendanceDoc).Inc()
		logger.LogError("mirror attendance failed", err)
	}
}
