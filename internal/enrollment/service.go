// Package enrollment registers teacher and student profiles together with
// their face photos.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sachintanwar1/College-Management-System/internal/faceclient"
	"github.com/sachintanwar1/College-Management-System/internal/imagefile"
	"github.com/sachintanwar1/College-Management-System/internal/logger"
	"github.com/sachintanwar1/College-Management-System/internal/metrics"
	"github.com/sachintanwar1/College-Management-System/internal/model"
	"github.com/sachintanwar1/College-Management-System/internal/store"
)

var (
	ErrMissingIdentity = errors.New("missing name or id")
	ErrNoImage         = errors.New("no image")
)

// Role selects the face directory and profile document.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// FacesDir returns the uploads subdirectory holding faces for the role.
func (r Role) FacesDir() string {
	return string(r) + "_faces"
}

// Photo is an uploaded face image: either a file part or a data URL.
type Photo struct {
	File     io.Reader
	Filename string
	DataURL  string
}

func (p Photo) hasFile() bool {
	return p.File != nil && p.Filename != ""
}

// TeacherForm is the teacher registration input.
type TeacherForm struct {
	Name            string
	TeacherID       string
	Department      string
	AssignedClasses string
	Photo           Photo
}

// StudentForm is the student registration input.
type StudentForm struct {
	Name      string
	StudentID string
	Class     string
	RollNo    string
	Photo     Photo
}

// Archiver copies a stored image to durable storage and returns its URL.
type Archiver interface {
	Archive(ctx context.Context, path, subfolder string) (string, error)
}

// Gallery registers faces with the recognition service.
type Gallery interface {
	Enroll(ctx context.Context, userID, imagePath, name string) (*faceclient.EnrollResult, error)
}

// Mirror receives the full profile lists after every registration.
type Mirror interface {
	ReplaceTeachers(ctx context.Context, teachers []model.TeacherProfile) error
	ReplaceStudents(ctx context.Context, students []model.StudentProfile) error
}

// Service stores profiles and face images.
type Service struct {
	docs       *store.Documents
	uploadsDir string
	archiver   Archiver
	gallery    Gallery
	mirror     Mirror
	now        func() time.Time
}

// NewService creates a service. archiver, gallery and mirror may be nil.
func NewService(docs *store.Documents, uploadsDir string, archiver Archiver, gallery Gallery, mirror Mirror) *Service {
	return &Service{
		docs:       docs,
		uploadsDir: uploadsDir,
		archiver:   archiver,
		gallery:    gallery,
		mirror:     mirror,
		now:        time.Now,
	}
}

// RegisterTeacher appends a teacher profile. Photo problems never fail the
// registration; the profile is stored without an image instead.
func (s *Service) RegisterTeacher(ctx context.Context, f TeacherForm) (model.TeacherProfile, error) {
	if f.Name == "" || f.TeacherID == "" {
		return model.TeacherProfile{}, ErrMissingIdentity
	}
	now := s.now()
	p := model.TeacherProfile{
		Name:            f.Name,
		TeacherID:       f.TeacherID,
		Department:      f.Department,
		AssignedClasses: f.AssignedClasses,
		EnrolledAt:      model.Timestamp(now),
	}
	if path := s.savePhoto(RoleTeacher, f.TeacherID, f.Photo, now); path != "" {
		p.FaceImage = &path
		p.FaceImageURL = s.archive(ctx, path, RoleTeacher)
	}

	var teachers []model.TeacherProfile
	err := s.docs.Update(store.TeachersDoc, &teachers, func() error {
		teachers = append(teachers, p)
		return nil
	})
	if err != nil {
		return model.TeacherProfile{}, fmt.Errorf("save teacher: %w", err)
	}
	metrics.Enrollments.WithLabelValues(string(RoleTeacher)).Inc()
	if s.mirror != nil {
		if err := s.mirror.ReplaceTeachers(ctx, teachers); err != nil {
			metrics.MirrorErrors.WithLabelValues(store.TeachersDoc).Inc()
			logger.LogError("mirror teachers failed", err)
		}
	}
	return p, nil
}

// RegisterStudent appends a student profile and, when a gallery is
// configured, enrolls the photo for recognition.
func (s *Service) RegisterStudent(ctx context.Context, f StudentForm) (model.StudentProfile, error) {
	if f.Name == "" || f.StudentID == "" {
		return model.StudentProfile{}, ErrMissingIdentity
	}
	now := s.now()
	p := model.StudentProfile{
		Name:       f.Name,
		StudentID:  f.StudentID,
		Class:      f.Class,
		RollNo:     f.RollNo,
		EnrolledAt: model.Timestamp(now),
	}
	if path := s.savePhoto(RoleStudent, f.StudentID, f.Photo, now); path != "" {
		p.FaceImage = &path
		p.FaceImageURL = s.archive(ctx, path, RoleStudent)
		s.enrollFace(ctx, f.StudentID, path, f.Name)
	}

	var students []model.StudentProfile
	err := s.docs.Update(store.StudentsDoc, &students, func() error {
		students = append(students, p)
		return nil
	})
	if err != nil {
		return model.StudentProfile{}, fmt.Errorf("save student: %w", err)
	}
	metrics.Enrollments.WithLabelValues(string(RoleStudent)).Inc()
	if s.mirror != nil {
		if err := s.mirror.ReplaceStudents(ctx, students); err != nil {
			metrics.MirrorErrors.WithLabelValues(store.StudentsDoc).Inc()
			logger.LogError("mirror students failed", err)
		}
	}
	return p, nil
}

// EnrollFace stores a face image for id without touching the profile lists
// and returns the stored path.
func (s *Service) EnrollFace(ctx context.Context, role Role, id string, photo Photo) (string, error) {
	dir := filepath.Join(s.uploadsDir, role.FacesDir())
	now := s.now()

	var path string
	switch {
	case photo.hasFile():
		p, err := imagefile.Copy(dir, imagefile.UniqueName(id, photo.Filename, now), photo.File)
		if err != nil {
			return "", err
		}
		path = p
	case imagefile.IsDataURL(photo.DataURL):
		img, err := imagefile.ParseDataURL(photo.DataURL)
		if err != nil {
			return "", err
		}
		p, err := imagefile.Write(dir, imagefile.UniqueName(id, "face."+img.Extension(), now), img.Data)
		if err != nil {
			return "", err
		}
		path = p
	default:
		return "", ErrNoImage
	}

	path = filepath.ToSlash(path)
	if role == RoleStudent {
		s.enrollFace(ctx, id, path, "")
	}
	return path, nil
}

// Teachers returns every registered teacher.
func (s *Service) Teachers() []model.TeacherProfile {
	teachers := []model.TeacherProfile{}
	s.docs.Load(store.TeachersDoc, &teachers)
	if teachers == nil {
		teachers = []model.TeacherProfile{}
	}
	return teachers
}

// Students returns every registered student.
func (s *Service) Students() []model.StudentProfile {
	students := []model.StudentProfile{}
	s.docs.Load(store.StudentsDoc, &students)
	if students == nil {
		students = []model.StudentProfile{}
	}
	return students
}

// savePhoto stores the photo and returns its slash-separated path, or "" when
// there is no usable image. A file part with a disallowed extension is ignored
// even if a data URL was also sent.
func (s *Service) savePhoto(role Role, id string, photo Photo, now time.Time) string {
	dir := filepath.Join(s.uploadsDir, role.FacesDir())
	if photo.hasFile() {
		if !imagefile.Allowed(photo.Filename) {
			logger.LogWarn("ignoring photo with unsupported extension", "role", role, "id", id, "file", photo.Filename)
			return ""
		}
		path, err := imagefile.Copy(dir, imagefile.UniqueName(id, photo.Filename, now), photo.File)
		if err != nil {
			logger.LogError("save photo failed", err, "role", role, "id", id)
			return ""
		}
		return filepath.ToSlash(path)
	}
	if !imagefile.IsDataURL(photo.DataURL) {
		return ""
	}
	img, err := imagefile.ParseDataURL(photo.DataURL)
	if err != nil {
		logger.LogWarn("decode photo failed", "role", role, "id", id, "error", err)
		return ""
	}
	path, err := imagefile.Write(dir, imagefile.UniqueName(id, "face."+img.Extension(), now), img.Data)
	if err != nil {
		logger.LogError("save photo failed", err, "role", role, "id", id)
		return ""
	}
	return filepath.ToSlash(path)
}

func (s *Service) archive(ctx context.Context, path string, role Role) string {
	if s.archiver == nil {
		return ""
	}
	url, err := s.archiver.Archive(ctx, path, role.FacesDir())
	if err != nil {
		logger.LogError("archive photo failed", err, "image", path)
		return ""
	}
	return url
}

func (s *Service) enrollFace(ctx context.Context, id, path, name string) {
	if s.gallery == nil {
		return
	}
	res, err := s.gallery.Enroll(ctx, id, path, name)
	if err != nil {
		logger.LogWarn("face gallery enroll failed", "student_id", id, "error", err)
		return
	}
	if !res.Success {
		logger.LogWarn("face gallery rejected photo", "student_id", id, "message", res.Message)
	}
}
