// Package handler exposes the HTTP API on a gin router.
package handler

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sachintanwar1/College-Management-System/internal/attendance"
	"github.com/sachintanwar1/College-Management-System/internal/auth"
	"github.com/sachintanwar1/College-Management-System/internal/enrollment"
	"github.com/sachintanwar1/College-Management-System/internal/httpmiddleware"
	"github.com/sachintanwar1/College-Management-System/internal/logger"
	"github.com/sachintanwar1/College-Management-System/internal/report"
	"github.com/sachintanwar1/College-Management-System/internal/results"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the services the handler serves.
type Deps struct {
	Results    *results.Service
	Attendance *attendance.Service
	Enrollment *enrollment.Service
	Reports    *report.Renderer
	Issuer     *auth.Issuer
	Admin      *auth.Credentials

	// Checks are reported by /healthz, keyed by dependency name.
	Checks map[string]HealthCheck
}

type Handler struct {
	results    *results.Service
	attendance *attendance.Service
	enrollment *enrollment.Service
	reports    *report.Renderer
	issuer     *auth.Issuer
	admin      *auth.Credentials
	checks     map[string]HealthCheck
	now        func() time.Time
}

func New(d Deps) *Handler {
	return &Handler{
		results:    d.Results,
		attendance: d.Attendance,
		enrollment: d.Enrollment,
		reports:    d.Reports,
		issuer:     d.Issuer,
		admin:      d.Admin,
		checks:     d.Checks,
		now:        time.Now,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	// Enrollment
	r.POST("/register-teacher", h.RegisterTeacher)
	r.POST("/register-student", h.RegisterStudent)
	r.POST("/face/enroll/teacher", h.EnrollTeacherFace)
	r.POST("/face/enroll/student", h.EnrollStudentFace)

	// Marks and results
	r.POST("/api/upload-marks", h.UploadMarks)
	r.GET("/api/get-marks", h.GetMarks)
	r.POST("/api/publish-semester-results", h.PublishSemesterResults)
	r.GET("/api/get-semester-results", h.GetSemesterResults)
	r.GET("/download/sessional_marks", h.DownloadSessionalMarks)
	r.GET("/student/lookup", h.LookupStudent)
	r.GET("/student/download/:file", h.DownloadStudentCSV)
	r.GET("/report/:roll", h.Report)
	r.GET("/report/:roll/qr.png", h.ReportQR)

	// Attendance
	r.POST("/face/recognize", h.Recognize)
	r.GET("/api/get-attendance", h.GetAttendance)
	r.POST("/api/clear-attendance", h.ClearAttendance)

	// Sign-in and protected pages
	r.POST("/admin/login", h.AdminLogin)
	r.POST("/teacher/login", h.TeacherLogin)
	r.POST("/auth/refresh", h.Refresh)

	admin := r.Group("/admin", auth.RequireRole(h.issuer, auth.RoleAdmin))
	admin.GET("/dashboard", h.AdminDashboard)

	teacher := r.Group("/teacher", auth.RequireRole(h.issuer, auth.RoleTeacher, auth.RoleAdmin))
	teacher.GET("/dashboard", h.TeacherDashboard)
	teacher.POST("/save-marks", h.TeacherSaveMarks)
	teacher.POST("/upload-csv", h.UploadCSV)
}

// Healthz reports each configured dependency; any failure yields 503.
func (h *Handler) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// isJSON reports whether the request declares a JSON body.
func isJSON(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == gin.MIMEJSON || strings.HasSuffix(ct, "+json")
}

// wantsJSON reports whether the client asked for JSON and not HTML.
func wantsJSON(c *gin.Context) bool {
	var jsonOK, htmlOK bool
	for _, part := range strings.Split(c.GetHeader("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch {
		case mt == "*/*":
			jsonOK, htmlOK = true, true
		case mt == gin.MIMEJSON || strings.HasSuffix(mt, "+json") || mt == "application/*":
			jsonOK = true
		case mt == gin.MIMEHTML || mt == "application/xhtml+xml" || mt == "text/*":
			htmlOK = true
		}
	}
	return jsonOK && !htmlOK
}

func badJSON(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Only JSON accepted"})
}

// logError logs err tagged with the request id.
func logError(c *gin.Context, msg string, err error, args ...any) {
	logger.LogError(msg, err, append(args, "request_id", httpmiddleware.GetRequestID(c))...)
}

func logWarn(c *gin.Context, msg string, args ...any) {
	logger.LogWarn(msg, append(args, "request_id", httpmiddleware.GetRequestID(c))...)
}
