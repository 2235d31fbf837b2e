package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sachintanwar1/College-Management-System/internal/enrollment"
	"github.com/sachintanwar1/College-Management-System/internal/imagefile"
)

const dashboardPath = "/dashboard"

// RegisterTeacher stores a teacher profile from a multipart form.
func (h *Handler) RegisterTeacher(c *gin.Context) {
	photo, closeFn := formPhoto(c, "photo_file", "photo_base64")
	defer closeFn()

	profile, err := h.enrollment.RegisterTeacher(c.Request.Context(), enrollment.TeacherForm{
		Name:            firstForm(c, "teacher_name", "name"),
		TeacherID:       firstForm(c, "teacher_id"),
		Department:      firstForm(c, "department"),
		AssignedClasses: firstForm(c, "assigned_classes"),
		Photo:           photo,
	})
	if errors.Is(err, enrollment.ErrMissingIdentity) {
		c.String(http.StatusBadRequest, "Missing name or teacher_id")
		return
	}
	if err != nil {
		logError(c, "register teacher failed", err)
		c.String(http.StatusInternalServerError, "Failed to register teacher")
		return
	}
	registered(c, profile)
}

// RegisterStudent stores a student profile from a multipart form.
func (h *Handler) RegisterStudent(c *gin.Context) {
	photo, closeFn := formPhoto(c, "photo_file_student", "photo_base64_student")
	defer closeFn()

	profile, err := h.enrollment.RegisterStudent(c.Request.Context(), enrollment.StudentForm{
		Name:      firstForm(c, "student_name", "name"),
		StudentID: firstForm(c, "student_id"),
		Class:     firstForm(c, "class_section"),
		RollNo:    firstForm(c, "roll_no"),
		Photo:     photo,
	})
	if errors.Is(err, enrollment.ErrMissingIdentity) {
		c.String(http.StatusBadRequest, "Missing name or student_id")
		return
	}
	if err != nil {
		logError(c, "register student failed", err)
		c.String(http.StatusInternalServerError, "Failed to register student")
		return
	}
	registered(c, profile)
}

// EnrollTeacherFace stores a teacher face image without touching profiles.
func (h *Handler) EnrollTeacherFace(c *gin.Context) {
	h.enrollFace(c, enrollment.RoleTeacher, firstForm(c, "teacher_id", "id"), "photo_base64")
}

// EnrollStudentFace stores a student face image without touching profiles.
func (h *Handler) EnrollStudentFace(c *gin.Context) {
	h.enrollFace(c, enrollment.RoleStudent, firstForm(c, "student_id", "id"), "photo_base64_student", "photo_base64")
}

func (h *Handler) enrollFace(c *gin.Context, role enrollment.Role, id string, dataFields ...string) {
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "missing id"})
		return
	}
	photo, closeFn := formPhoto(c, "file", dataFields...)
	defer closeFn()

	path, err := h.enrollment.EnrollFace(c.Request.Context(), role, id, photo)
	switch {
	case errors.Is(err, enrollment.ErrNoImage):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "no image"})
	case errors.Is(err, imagefile.ErrDecode):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "invalid image"})
	case err != nil:
		logError(c, "enroll face failed", err, "role", string(role), "id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "failed to save image"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "path": path})
	}
}

// registered answers a successful registration: JSON for API clients, a
// redirect to the dashboard for browsers.
func registered(c *gin.Context, profile any) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "profile": profile})
		return
	}
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

// formPhoto collects the file part and the first non-empty data URL field.
// The returned func closes the file part.
func formPhoto(c *gin.Context, fileField string, dataFields ...string) (enrollment.Photo, func()) {
	photo := enrollment.Photo{DataURL: firstForm(c, dataFields...)}
	closeFn := func() {}
	fh, err := c.FormFile(fileField)
	if err != nil || fh.Filename == "" {
		return photo, closeFn
	}
	f, err := fh.Open()
	if err != nil {
		logWarn(c, "open uploaded photo failed", "field", fileField, "error", err)
		return photo, closeFn
	}
	photo.File = f
	photo.Filename = fh.Filename
	return photo, func() { _ = f.Close() }
}

// firstForm returns the first non-blank form value among keys.
func firstForm(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.PostForm(k)); v != "" {
			return v
		}
	}
	return ""
}
