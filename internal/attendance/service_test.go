package attendance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sachintanwar1/College-Management-System/internal/model"
	"github.com/sachintanwar1/College-Management-System/internal/queue"
	"github.com/sachintanwar1/College-Management-System/internal/store"
)

const pngDataURL = "data:image/png;base64,aGVsbG8="

var fixedNow = time.Date(2025, 3, 1, 10, 30, 0, 123456000, time.UTC)

type recordingQueue struct {
	mu   sync.Mutex
	msgs []queue.Message
}

func (q *recordingQueue) Publish(_ context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *recordingQueue) Consume(context.Context) (<-chan queue.Message, error) {
	return nil, errors.New("not supported")
}

type fakeMirror struct {
	last  []model.AttendanceRecord
	calls int
}

func (m *fakeMirror) ReplaceAttendance(_ context.Context, records []model.AttendanceRecord) error {
	m.calls++
	m.last = records
	return nil
}

type stubMatcher struct {
	match Match
	err   error
}

func (m stubMatcher) Identify(context.Context, string) (Match, error) { return m.match, m.err }

func newTestService(t *testing.T, m Matcher) (*Service, *recordingQueue, *fakeMirror) {
	t.Helper()
	root := t.TempDir()
	docs, err := store.NewDocuments(filepath.Join(root, "data"))
	if err != nil {
		t.Fatal(err)
	}
	q := &recordingQueue{}
	mirror := &fakeMirror{}
	svc := NewService(docs, filepath.Join(root, "uploads"), m, q, mirror)
	svc.now = func() time.Time { return fixedNow }
	return svc, q, mirror
}

func TestCaptureDataURLRecordsDemoStudent(t *testing.T) {
	svc, q, mirror := newTestService(t, nil)

	rec, err := svc.Capture(context.Background(), Capture{DataURL: pngDataURL})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != "DEMO-20250301103000" || rec.Name != "Demo Student" || rec.Status != model.StatusPresent {
		t.Fatalf("record = %+v", rec)
	}
	if rec.TS != "2025-03-01T10:30:00.123456Z" {
		t.Fatalf("ts = %s", rec.TS)
	}
	base := filepath.Base(rec.Image)
	if base != "capture_20250301103000123456_capture.png" {
		t.Fatalf("image name = %s", base)
	}
	if b, err := os.ReadFile(rec.Image); err != nil || string(b) != "hello" {
		t.Fatalf("stored image = %q, %v", b, err)
	}

	list := svc.List()
	if len(list) != 1 || list[0] != rec {
		t.Fatalf("list = %+v", list)
	}
	if len(q.msgs) != 1 || q.msgs[0].Type != queue.TypeCaptureSaved || string(q.msgs[0].Body) != rec.Image {
		t.Fatalf("queue = %+v", q.msgs)
	}
	if mirror.calls != 1 || len(mirror.last) != 1 {
		t.Fatalf("mirror calls=%d last=%v", mirror.calls, mirror.last)
	}
}

func TestCaptureJPEGHeaderPicksJPG(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	rec, err := svc.Capture(context.Background(), Capture{DataURL: "data:image/jpeg;base64,aGVsbG8="})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(rec.Image, "_capture.jpg") {
		t.Fatalf("image = %s", rec.Image)
	}
}

func TestCaptureFileUpload(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	rec, err := svc.Capture(context.Background(), Capture{File: strings.NewReader("raw"), Filename: "../cam shot.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(rec.Image) != "capture_20250301103000123456_cam_shot.jpg" {
		t.Fatalf("image = %s", rec.Image)
	}
}

func TestCaptureWithoutImage(t *testing.T) {
	svc, q, _ := newTestService(t, nil)
	for _, in := range []Capture{{}, {DataURL: "not-a-data-url"}} {
		if _, err := svc.Capture(context.Background(), in); !errors.Is(err, ErrNoImage) {
			t.Fatalf("Capture(%+v) err = %v, want ErrNoImage", in, err)
		}
	}
	if len(svc.List()) != 0 || len(q.msgs) != 0 {
		t.Fatal("nothing should be recorded without an image")
	}
}

func TestCaptureUndecodableImage(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.Capture(context.Background(), Capture{DataURL: "data:image/png;base64,***"})
	if !errors.Is(err, ErrSaveImage) {
		t.Fatalf("err = %v, want ErrSaveImage", err)
	}
	if len(svc.List()) != 0 {
		t.Fatal("failed capture must not be recorded")
	}
}

func TestCaptureUsesMatcher(t *testing.T) {
	svc, _, _ := newTestService(t, stubMatcher{match: Match{Matched: true, ID: "STD-9", Name: "Ravi"}})
	rec, err := svc.Capture(context.Background(), Capture{DataURL: pngDataURL})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != "STD-9" || rec.Name != "Ravi" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestCaptureMatcherErrorFallsBackToDemo(t *testing.T) {
	svc, _, _ := newTestService(t, stubMatcher{err: errors.New("face service down")})
	rec, err := svc.Capture(context.Background(), Capture{DataURL: pngDataURL})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(rec.ID, "DEMO-") {
		t.Fatalf("id = %s", rec.ID)
	}
}

func TestClearThenList(t *testing.T) {
	svc, _, mirror := newTestService(t, nil)
	if _, err := svc.Capture(context.Background(), Capture{DataURL: pngDataURL}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Clear(context.Background()); err != nil {
		t.Fatal(err)
	}
	list := svc.List()
	if list == nil || len(list) != 0 {
		t.Fatalf("list after clear = %#v", list)
	}
	if mirror.calls != 2 || len(mirror.last) != 0 {
		t.Fatalf("mirror calls=%d last=%v", mirror.calls, mirror.last)
	}
}

func TestListWithoutDocument(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	if list := svc.List(); list == nil || len(list) != 0 {
		t.Fatalf("list = %#v", list)
	}
}
