package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
)

// Document names under the data directory.
const (
	TeachersDoc        = "teachers.json"
	StudentsDoc        = "students.json"
	SessionalMarksDoc  = "sessional_marks.json"
	SemesterResultsDoc = "semester_results.json"
	AttendanceDoc      = "attendance.json"
)

// Documents persists named JSON documents as whole files in a single directory.
//
// Reads never fail the caller: a missing or malformed file leaves the caller's
// default untouched. Writes go through a temp file and a rename so a crash
// mid-write never leaves a truncated document behind.
type Documents struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDocuments creates the data directory if needed.
func NewDocuments(dir string) (*Documents, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Documents{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the data directory.
func (d *Documents) Dir() string { return d.dir }

// Path returns the file path backing a document.
func (d *Documents) Path(name string) string { return filepath.Join(d.dir, name) }

// Load decodes the named document into dst. It reports whether a document was
// read; on false dst keeps whatever default the caller put there.
func (d *Documents) Load(name string, dst any) bool {
	raw, err := os.ReadFile(d.Path(name))
	if err != nil {
		return false
	}
	// Decode into a scratch value first so a half-decoded document never
	// clobbers the caller's default.
	tmp := newLike(dst)
	if err := json.Unmarshal(raw, tmp); err != nil {
		return false
	}
	copyInto(dst, tmp)
	return true
}

// Save replaces the named document with the pretty-printed encoding of v.
func (d *Documents) Save(name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(d.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpName, d.Path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// Update loads the document into v (keeping v as the default when absent),
// applies fn and saves the result. Concurrent Updates of the same document
// within this process are serialized.
func (d *Documents) Update(name string, v any, fn func() error) error {
	l := d.lock(name)
	l.Lock()
	defer l.Unlock()

	d.Load(name, v)
	if err := fn(); err != nil {
		return err
	}
	return d.Save(name, v)
}

func (d *Documents) lock(name string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[name]
	if !ok {
		l = &sync.Mutex{}
		d.locks[name] = l
	}
	return l
}

// newLike allocates a zero value of the type dst points to.
func newLike(dst any) any {
	return reflect.New(reflect.TypeOf(dst).Elem()).Interface()
}

func copyInto(dst, src any) {
	reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(src).Elem())
}
