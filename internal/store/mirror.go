package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sachintanwar1/College-Management-System/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		name TEXT NOT NULL,
		class_name TEXT,
		roll_no TEXT,
		face_image TEXT,
		face_image_url TEXT,
		enrolled_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_students_student_id ON students (student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_students_roll_no ON students (roll_no)`,
	`CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		name TEXT NOT NULL,
		department TEXT,
		assigned_classes TEXT,
		face_image TEXT,
		face_image_url TEXT,
		enrolled_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_teachers_teacher_id ON teachers (teacher_id)`,
	`CREATE TABLE IF NOT EXISTS marks (
		id TEXT PRIMARY KEY,
		student_id TEXT,
		roll_no TEXT,
		semester DOUBLE PRECISION,
		marks DOUBLE PRECISION,
		gpa DOUBLE PRECISION,
		raw TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_marks_student_id ON marks (student_id)`,
	`CREATE TABLE IF NOT EXISTS semesters (
		id TEXT PRIMARY KEY,
		student_id TEXT,
		roll_no TEXT,
		sem_number DOUBLE PRECISION,
		year DOUBLE PRECISION,
		marks DOUBLE PRECISION,
		gpa DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_semesters_student_id ON semesters (student_id)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		record_id TEXT NOT NULL,
		name TEXT,
		status TEXT NOT NULL,
		ts TEXT NOT NULL,
		image TEXT,
		image_url TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_ts ON attendance (ts)`,
}

// Mirror copies each saved document into relational tables. Every write
// replaces the table contents; the JSON documents stay authoritative.
type Mirror struct {
	db  *DB
	now func() time.Time
}

// NewMirror creates the tables if needed.
func NewMirror(ctx context.Context, db *DB) (*Mirror, error) {
	for _, stmt := range schema {
		if _, err := db.Client.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &Mirror{db: db, now: time.Now}, nil
}

// Healthy verifies the mirror database is reachable.
func (m *Mirror) Healthy(ctx context.Context) bool {
	return m != nil && m.db.Healthy(ctx)
}

// ReplaceStudents mirrors students.json.
func (m *Mirror) ReplaceStudents(ctx context.Context, students []model.StudentProfile) error {
	rows := make([][]any, 0, len(students))
	for _, s := range students {
		rows = append(rows, []any{uuid.NewString(), s.StudentID, s.Name, s.Class, s.RollNo, s.FaceImage, nullString(s.FaceImageURL), s.EnrolledAt})
	}
	return m.replace(ctx, "students",
		`INSERT INTO students (id, student_id, name, class_name, roll_no, face_image, face_image_url, enrolled_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rows)
}

// ReplaceTeachers mirrors teachers.json.
func (m *Mirror) ReplaceTeachers(ctx context.Context, teachers []model.TeacherProfile) error {
	rows := make([][]any, 0, len(teachers))
	for _, t := range teachers {
		rows = append(rows, []any{uuid.NewString(), t.TeacherID, t.Name, t.Department, t.AssignedClasses, t.FaceImage, nullString(t.FaceImageURL), t.EnrolledAt})
	}
	return m.replace(ctx, "teachers",
		`INSERT INTO teachers (id, teacher_id, name, department, assigned_classes, face_image, face_image_url, enrolled_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rows)
}

// ReplaceMarks mirrors the sessional marks records. The full record is kept
// in raw since entries are free-form.
func (m *Mirror) ReplaceMarks(ctx context.Context, records []model.Record) error {
	stamp := model.Timestamp(m.now())
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode mark: %w", err)
		}
		rows = append(rows, []any{uuid.NewString(), text(r, "student_id"), text(r, "roll_no"),
			number(r, "semester"), number(r, "marks"), number(r, "gpa"), string(raw), stamp})
	}
	return m.replace(ctx, "marks",
		`INSERT INTO marks (id, student_id, roll_no, semester, marks, gpa, raw, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rows)
}

// ReplaceSemesterResults mirrors one row per student semester.
func (m *Mirror) ReplaceSemesterResults(ctx context.Context, records []model.Record) error {
	var rows [][]any
	for _, r := range records {
		for _, sem := range r.List("semesters") {
			rows = append(rows, []any{uuid.NewString(), text(r, "student_id"), text(r, "roll_no"),
				number(sem, "sem"), number(sem, "year"), number(sem, "marks"), number(sem, "gpa")})
		}
	}
	return m.replace(ctx, "semesters",
		`INSERT INTO semesters (id, student_id, roll_no, sem_number, year, marks, gpa) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rows)
}

// ReplaceAttendance mirrors attendance.json.
func (m *Mirror) ReplaceAttendance(ctx context.Context, records []model.AttendanceRecord) error {
	rows := make([][]any, 0, len(records))
	for _, a := range records {
		rows = append(rows, []any{uuid.NewString(), a.ID, a.Name, a.Status, a.TS, a.Image, nullString(a.ImageURL)})
	}
	return m.replace(ctx, "attendance",
		`INSERT INTO attendance (id, record_id, name, status, ts, image, image_url) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rows)
}

func (m *Mirror) replace(ctx context.Context, table, insert string, rows [][]any) error {
	tx, err := m.db.Client.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, m.db.Rebind(insert))
		if err != nil {
			return fmt.Errorf("prepare %s: %w", table, err)
		}
		defer stmt.Close()
		for _, args := range rows {
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert %s: %w", table, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

func text(r model.Record, key string) any {
	if s, ok := r.String(key); ok {
		return s
	}
	return nil
}

func number(r model.Record, key string) any {
	if f, ok := r.Number(key); ok {
		return f
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
