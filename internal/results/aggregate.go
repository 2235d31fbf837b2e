package results

import (
	"encoding/json"
	"strconv"

	"github.com/sachintanwar1/College-Management-System/internal/model"
)

// Placeholder is shown instead of a figure when no semester contributed a value.
const Placeholder = "-"

// Figure is a derived number that may be unavailable. It renders and encodes
// as Placeholder when unavailable, never as 0 or null.
type Figure struct {
	Value     float64
	Available bool
}

func (f Figure) String() string {
	if !f.Available {
		return Placeholder
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.Available {
		return json.Marshal(Placeholder)
	}
	return json.Marshal(f.Value)
}

// Totals are the figures derived from a student's semester list.
type Totals struct {
	TotalMarks Figure `json:"total_marks"`
	AvgGPA     Figure `json:"avg_gpa"`
	// Counts of semesters that carried a numeric value.
	MarksCount int `json:"marks_count"`
	GPACount   int `json:"gpa_count"`
}

// Aggregate sums numeric marks and averages numeric GPAs over the student's
// "semesters" list. Non-numeric and missing values are skipped.
func Aggregate(student model.Record) Totals {
	var t Totals
	var marks, gpas float64
	for _, sem := range student.List("semesters") {
		if m, ok := sem.Number("marks"); ok {
			marks += m
			t.MarksCount++
		}
		if g, ok := sem.Number("gpa"); ok {
			gpas += g
			t.GPACount++
		}
	}
	if t.MarksCount > 0 {
		t.TotalMarks = Figure{Value: marks, Available: true}
	}
	if t.GPACount > 0 {
		t.AvgGPA = Figure{Value: round2(gpas / float64(t.GPACount)), Available: true}
	}
	return t
}

// round2 rounds to two decimals with halves going to the even digit, as the
// decimal text of v does.
func round2(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return f
}
