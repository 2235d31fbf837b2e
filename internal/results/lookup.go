package results

import "github.com/sachintanwar1/College-Management-System/internal/model"

// Summary is a matched student with its derived totals.
type Summary struct {
	Student model.Record
	Totals  Totals
	// Document is the results document the student came from; the report
	// reads its save metadata.
	Document model.Document
}

// MatchStudent returns the first record whose roll_no or student_id equals key.
func MatchStudent(records []model.Record, key string) (model.Record, bool) {
	for _, r := range records {
		if roll, ok := r.String("roll_no"); ok && roll == key {
			return r, true
		}
		if id, ok := r.String("student_id"); ok && id == key {
			return r, true
		}
	}
	return nil, false
}

// Find looks key up in the published results. ErrNoResults means nothing has
// been published; ErrStudentNotFound means the document exists but has no match.
func (s *Service) Find(key string) (model.Record, model.Document, error) {
	doc, ok := s.Results()
	if !ok || (doc.Records == nil && doc.Meta == nil) {
		return nil, model.Document{}, ErrNoResults
	}
	student, ok := MatchStudent(doc.Records, key)
	if !ok {
		return nil, doc, ErrStudentNotFound
	}
	return student, doc, nil
}

// Summarize finds key and aggregates its semesters.
func (s *Service) Summarize(key string) (Summary, error) {
	student, doc, err := s.Find(key)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Student: student, Totals: Aggregate(student), Document: doc}, nil
}
