package results

import (
	"context"
	"fmt"

	"github.com/sachintanwar1/College-Management-System/internal/metrics"
	"github.com/sachintanwar1/College-Management-System/internal/model"
	"github.com/sachintanwar1/College-Management-System/internal/store"
)

// MarksUpload is the body accepted by the marks endpoints. Records is an
// alias for Marks used by older clients. LastSavedAt is only used when it is
// a string; anything else is replaced by the server time.
type MarksUpload struct {
	Marks       []model.Record `json:"marks"`
	Records     []model.Record `json:"records"`
	Meta        model.Meta     `json:"meta"`
	LastSavedBy any            `json:"lastSavedBy"`
	LastSavedAt any            `json:"lastSavedAt"`
}

// SaveMarks replaces the sessional marks document with the uploaded entries.
// Entries are stored as given: no range checks and no per-student dedup.
// It returns the lastSavedAt stamp that was stored.
func (s *Service) SaveMarks(ctx context.Context, up MarksUpload) (string, error) {
	records := up.Marks
	if len(records) == 0 {
		records = up.Records
	}
	if records == nil {
		records = []model.Record{}
	}

	meta := up.Meta
	if len(meta) == 0 {
		savedAt, _ := up.LastSavedAt.(string)
		if savedAt == "" {
			savedAt = s.stamp()
		}
		var by any = map[string]any{}
		if up.LastSavedBy != nil {
			by = up.LastSavedBy
		}
		meta = model.Meta{model.MetaSavedAt: savedAt, model.MetaSavedBy: by}
	}

	doc := model.Document{Meta: meta, Records: records}
	if err := s.docs.Save(store.SessionalMarksDoc, doc); err != nil {
		return "", fmt.Errorf("save marks: %w", err)
	}
	metrics.MarksUploads.Inc()
	s.mirrorMarks(ctx, records)
	return doc.SavedAt(), nil
}
