package results

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sachintanwar1/College-Management-System/internal/model"
	"github.com/sachintanwar1/College-Management-System/internal/store"
)

type fakeMirror struct {
	marks   []model.Record
	results []model.Record
	err     error
}

func (m *fakeMirror) ReplaceMarks(_ context.Context, records []model.Record) error {
	m.marks = records
	return m.err
}

func (m *fakeMirror) ReplaceSemesterResults(_ context.Context, records []model.Record) error {
	m.results = records
	return m.err
}

func newService(t *testing.T, mirror Mirror) (*Service, *store.Documents) {
	t.Helper()
	docs, err := store.NewDocuments(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(docs, mirror)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC) }
	return svc, docs
}

func decodeRecord(t *testing.T, s string) model.Record {
	t.Helper()
	var r model.Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return r
}

const publishedResults = `[
  {"roll_no": 12, "student_id": "STD-1", "name": "Asha", "class": "CSE-A",
   "semesters": [
     {"sem": 1, "year": 2023, "marks": 70, "gpa": 3.0},
     {"sem": 2, "year": 2023, "marks": "x", "gpa": null},
     {"sem": 3, "year": 2024, "marks": 90, "gpa": 3.5}
   ]},
  {"roll_no": "13", "student_id": "STD-2", "name": "Ravi", "semesters": []},
  {"roll_no": "12", "student_id": "STD-9", "name": "Later duplicate"}
]`

func TestAggregateExample(t *testing.T) {
	student := decodeRecord(t, `{"semesters": [{"marks":70,"gpa":3.0},{"marks":"x","gpa":null},{"marks":90,"gpa":3.5}]}`)
	got := Aggregate(student)
	if got.TotalMarks.String() != "160" {
		t.Errorf("total_marks = %s, want 160", got.TotalMarks)
	}
	if got.AvgGPA.String() != "3.25" {
		t.Errorf("avg_gpa = %s, want 3.25", got.AvgGPA)
	}
	if got.MarksCount != 2 || got.GPACount != 2 {
		t.Errorf("counts = %d/%d, want 2/2", got.MarksCount, got.GPACount)
	}
}

func TestAggregatePlaceholderWhenNothingNumeric(t *testing.T) {
	cases := map[string]string{
		"no semesters":   `{"name": "x"}`,
		"empty list":     `{"semesters": []}`,
		"strings only":   `{"semesters": [{"marks": "80", "gpa": "3.1"}]}`,
		"booleans":       `{"semesters": [{"marks": true, "gpa": false}]}`,
		"not a list":     `{"semesters": {"marks": 10}}`,
		"non-object row": `{"semesters": [5, "x", null]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			got := Aggregate(decodeRecord(t, body))
			if got.TotalMarks.Available || got.AvgGPA.Available {
				t.Fatalf("expected unavailable figures, got %+v", got)
			}
			out, err := json.Marshal(got)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(out), `"total_marks":"-"`) || !strings.Contains(string(out), `"avg_gpa":"-"`) {
				t.Fatalf("expected placeholders in %s", out)
			}
		})
	}
}

func TestAggregateZeroMarksIsNotPlaceholder(t *testing.T) {
	got := Aggregate(decodeRecord(t, `{"semesters": [{"marks": 0, "gpa": 0}]}`))
	if !got.TotalMarks.Available || got.TotalMarks.String() != "0" {
		t.Fatalf("numeric zero should stay a number, got %s", got.TotalMarks)
	}
	out, _ := json.Marshal(got.AvgGPA)
	if string(out) != "0" {
		t.Fatalf("avg_gpa JSON = %s, want 0", out)
	}
}

func TestAggregateRoundsGPA(t *testing.T) {
	got := Aggregate(decodeRecord(t, `{"semesters": [{"gpa": 3.1}, {"gpa": 3.2}, {"gpa": 3.4}]}`))
	if got.AvgGPA.String() != "3.23" {
		t.Fatalf("avg_gpa = %s, want 3.23", got.AvgGPA)
	}

	for body, want := range map[string]string{
		`{"semesters": [{"gpa": 3.0}, {"gpa": 3.25}]}`: "3.12",
		`{"semesters": [{"gpa": 3.5}, {"gpa": 3.75}]}`: "3.62",
		`{"semesters": [{"gpa": 3.0}, {"gpa": 3.75}]}`: "3.38",
	} {
		if got := Aggregate(decodeRecord(t, body)).AvgGPA.String(); got != want {
			t.Errorf("avg_gpa of %s = %s, want %s", body, got, want)
		}
	}
}

func TestPublishAndFind(t *testing.T) {
	mirror := &fakeMirror{}
	svc, _ := newService(t, mirror)

	count, savedAt, err := svc.Publish(context.Background(), []byte(publishedResults))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if savedAt != "2025-03-01T10:30:00.000000Z" {
		t.Errorf("savedAt = %q", savedAt)
	}
	if len(mirror.results) != 3 {
		t.Errorf("mirror received %d records", len(mirror.results))
	}

	doc, ok := svc.Results()
	if !ok {
		t.Fatal("results document not stored")
	}
	if doc.SavedByName("System") != "API" {
		t.Errorf("lastSavedBy.name = %q, want API", doc.SavedByName("System"))
	}

	byRoll, err := svc.Summarize("12")
	if err != nil {
		t.Fatalf("Summarize by roll: %v", err)
	}
	byID, err := svc.Summarize("STD-1")
	if err != nil {
		t.Fatalf("Summarize by id: %v", err)
	}
	if byRoll.Student.Text("name") != "Asha" || byID.Student.Text("name") != "Asha" {
		t.Fatalf("matched the wrong students: %q / %q", byRoll.Student.Text("name"), byID.Student.Text("name"))
	}
	a, _ := json.Marshal(byRoll.Totals)
	b, _ := json.Marshal(byID.Totals)
	if !bytes.Equal(a, b) {
		t.Fatalf("aggregates differ: %s vs %s", a, b)
	}
	if byRoll.Totals.TotalMarks.String() != "160" {
		t.Errorf("total = %s", byRoll.Totals.TotalMarks)
	}
}

func TestFindDistinguishesMissingDocument(t *testing.T) {
	svc, _ := newService(t, nil)

	if _, _, err := svc.Find("12"); !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
	if _, _, err := svc.Publish(context.Background(), []byte(`[{"roll_no": "1"}]`)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Find("999"); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("err = %v, want ErrStudentNotFound", err)
	}
}

func TestPublishRejectsWrongShapes(t *testing.T) {
	svc, docs := newService(t, nil)
	if _, _, err := svc.Publish(context.Background(), []byte(`[{"roll_no": "1", "name": "kept"}]`)); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(docs.Path(store.SemesterResultsDoc))
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		body string
		want error
	}{
		{`{"roll_no": "1"}`, ErrNotArray},
		{`"students"`, ErrNotArray},
		{`42`, ErrNotArray},
		{`[1, 2]`, ErrNotObject},
		{`[{"roll_no": "1"}, null]`, ErrNotObject},
		{`[{"roll_no": `, ErrMalformed},
		{``, ErrMalformed},
	}
	for _, tc := range cases {
		if _, _, err := svc.Publish(context.Background(), []byte(tc.body)); !errors.Is(err, tc.want) {
			t.Errorf("Publish(%q) err = %v, want %v", tc.body, err, tc.want)
		}
	}

	after, err := os.ReadFile(docs.Path(store.SemesterResultsDoc))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("rejected publish modified the stored document")
	}
}

func TestSaveMarksStampsMetadata(t *testing.T) {
	mirror := &fakeMirror{}
	svc, _ := newService(t, mirror)

	up := MarksUpload{Marks: []model.Record{
		decodeRecord(t, `{"student_id": "STD-1", "marks": 41, "gpa": 3.1}`),
		decodeRecord(t, `{"student_id": "STD-1", "marks": 44, "gpa": 3.3}`),
	}}
	savedAt, err := svc.SaveMarks(context.Background(), up)
	if err != nil {
		t.Fatal(err)
	}
	if savedAt != "2025-03-01T10:30:00.000000Z" {
		t.Errorf("savedAt = %q", savedAt)
	}

	doc, ok := svc.Marks()
	if !ok {
		t.Fatal("marks not stored")
	}
	if len(doc.Records) != 2 {
		t.Fatalf("duplicates for one student must coexist, got %d records", len(doc.Records))
	}
	by, ok := doc.Meta.Object(model.MetaSavedBy)
	if !ok || len(by) != 0 {
		t.Errorf("lastSavedBy = %v, want empty object", doc.Meta[model.MetaSavedBy])
	}
	if len(mirror.marks) != 2 {
		t.Errorf("mirror received %d records", len(mirror.marks))
	}
}

func TestSaveMarksKeepsCallerMetadata(t *testing.T) {
	svc, _ := newService(t, nil)
	up := MarksUpload{
		Records:     []model.Record{decodeRecord(t, `{"roll_no": "7"}`)},
		LastSavedAt: "2024-12-31T23:59:59Z",
		LastSavedBy: map[string]any{"id": "T-1", "name": "Meera"},
	}
	savedAt, err := svc.SaveMarks(context.Background(), up)
	if err != nil {
		t.Fatal(err)
	}
	if savedAt != "2024-12-31T23:59:59Z" {
		t.Errorf("savedAt = %q", savedAt)
	}
	doc, _ := svc.Marks()
	if doc.SavedByName("") != "Meera" {
		t.Errorf("saved by = %q", doc.SavedByName(""))
	}
	if len(doc.Records) != 1 {
		t.Errorf("records alias not used: %d", len(doc.Records))
	}

	explicit := MarksUpload{Meta: model.Meta{"lastSavedAt": "fixed", "remarks": "final"}}
	savedAt, err = svc.SaveMarks(context.Background(), explicit)
	if err != nil {
		t.Fatal(err)
	}
	doc, _ = svc.Marks()
	if savedAt != "fixed" || doc.Remarks() != "final" || len(doc.Records) != 0 {
		t.Fatalf("explicit meta not stored verbatim: %q %+v", savedAt, doc)
	}
}

func TestSaveMarksStampsNonStringSavedAt(t *testing.T) {
	svc, _ := newService(t, nil)
	var up MarksUpload
	if err := json.Unmarshal([]byte(`{"marks":[{"roll":"12"}],"lastSavedAt":1700000000000}`), &up); err != nil {
		t.Fatalf("numeric lastSavedAt rejected: %v", err)
	}
	savedAt, err := svc.SaveMarks(context.Background(), up)
	if err != nil {
		t.Fatal(err)
	}
	if savedAt != "2025-03-01T10:30:00.000000Z" {
		t.Fatalf("savedAt = %q, want server stamp", savedAt)
	}
}

func TestMirrorFailureDoesNotFailSave(t *testing.T) {
	svc, _ := newService(t, &fakeMirror{err: errors.New("db down")})
	if _, err := svc.SaveMarks(context.Background(), MarksUpload{}); err != nil {
		t.Fatalf("mirror error leaked: %v", err)
	}
}

func TestLegacyBareArrayDocument(t *testing.T) {
	svc, docs := newService(t, nil)
	legacy := `[{"roll_no": "5", "semesters": [{"marks": 50}]}]`
	if err := os.WriteFile(filepath.Join(docs.Dir(), store.SemesterResultsDoc), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err := svc.Summarize("5")
	if err != nil {
		t.Fatalf("legacy document not readable: %v", err)
	}
	if sum.Totals.TotalMarks.String() != "50" {
		t.Errorf("total = %s", sum.Totals.TotalMarks)
	}
}

func TestWriteCSV(t *testing.T) {
	student := decodeRecord(t, `{"roll_no": 12, "student_id": "STD-1", "name": "Asha, K", "class": "CSE",
		"semesters": [{"sem": 1, "year": 2023, "marks": 70, "gpa": 3.0}, {"sem": 2, "gpa": null}]}`)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, student); err != nil {
		t.Fatal(err)
	}
	want := "roll_no,student_id,name,class,semester,year,marks,gpa\n" +
		"12,STD-1,\"Asha, K\",CSE,1,2023,70,3.0\n" +
		"12,STD-1,\"Asha, K\",CSE,2,,,\n"
	if buf.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPreviewCSV(t *testing.T) {
	in := "roll_no,marks\n12,70\n , \n\n13,\"8\"\"0\"\n14\n"
	rows, err := PreviewCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[2][1] != `8"0` {
		t.Errorf("quoted cell = %q", rows[2][1])
	}
	if len(rows[3]) != 1 {
		t.Errorf("ragged row should be kept: %v", rows[3])
	}
}
