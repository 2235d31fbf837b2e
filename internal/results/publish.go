package results

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/sachintanwar1/College-Management-System/internal/metrics"
	"github.com/sachintanwar1/College-Management-System/internal/model"
	"github.com/sachintanwar1/College-Management-System/internal/store"
)

// PublishActor is stamped as lastSavedBy on every published results document.
var PublishActor = map[string]any{"id": "api", "name": "API"}

// Publish replaces the semester results document with body, which must be a
// JSON array of student objects. On any error the stored document is left as it was.
func (s *Service) Publish(ctx context.Context, body []byte) (count int, savedAt string, err error) {
	records, err := parseStudents(body)
	if err != nil {
		return 0, "", err
	}

	doc := model.Document{
		Meta: model.Meta{
			model.MetaSavedAt: s.stamp(),
			model.MetaSavedBy: PublishActor,
		},
		Records: records,
	}
	if err := s.docs.Save(store.SemesterResultsDoc, doc); err != nil {
		return 0, "", fmt.Errorf("save semester results: %w", err)
	}
	metrics.ResultsPublishes.Inc()
	s.mirrorResults(ctx, records)
	return len(records), doc.SavedAt(), nil
}

func parseStudents(body []byte) ([]model.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, ErrMalformed
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, ErrNotArray
	}
	records := make([]model.Record, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("entry %d: %w", i, ErrNotObject)
		}
		var rec model.Record
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, ErrNotObject)
		}
		records = append(records, rec)
	}
	return records, nil
}
