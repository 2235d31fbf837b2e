package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sachintanwar1/College-Management-System/internal/report"
	"github.com/sachintanwar1/College-Management-System/internal/results"
)

const (
	msgNoResultsForReport = "No semester results available on server. Upload via /api/publish-semester-results or use admin upload."
	qrSize                = 256
)

// UploadMarks replaces the sessional marks document.
func (h *Handler) UploadMarks(c *gin.Context) {
	if !isJSON(c) {
		badJSON(c)
		return
	}
	var up results.MarksUpload
	if err := json.NewDecoder(c.Request.Body).Decode(&up); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON payload"})
		return
	}
	savedAt, err := h.results.SaveMarks(c.Request.Context(), up)
	if err != nil {
		logError(c, "save marks failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save marks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "saved_at": savedAt})
}

// GetMarks returns the stored marks document, or {} when none exists.
func (h *Handler) GetMarks(c *gin.Context) {
	doc, ok := h.results.Marks()
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// PublishSemesterResults replaces the semester results with a JSON array.
func (h *Handler) PublishSemesterResults(c *gin.Context) {
	if !isJSON(c) {
		badJSON(c)
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	count, savedAt, err := h.results.Publish(c.Request.Context(), body)
	switch {
	case errors.Is(err, results.ErrMalformed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON payload"})
	case errors.Is(err, results.ErrNotArray):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expecting top-level array of student objects"})
	case errors.Is(err, results.ErrNotObject):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Every student entry must be a JSON object"})
	case err != nil:
		logError(c, "publish semester results failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save semester results"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "count": count, "saved_at": savedAt})
	}
}

// GetSemesterResults returns the stored results document.
func (h *Handler) GetSemesterResults(c *gin.Context) {
	doc, ok := h.results.Results()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ok": false, "message": "No semester_results found on server"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": doc})
}

// DownloadSessionalMarks returns the stored marks document or 404.
func (h *Handler) DownloadSessionalMarks(c *gin.Context) {
	doc, ok := h.results.Marks()
	if !ok || (doc.Meta == nil && len(doc.Records) == 0) {
		c.String(http.StatusNotFound, "No sessional marks stored")
		return
	}
	c.JSON(http.StatusOK, doc)
}

// LookupStudent finds ?q= by roll number or student id.
func (h *Handler) LookupStudent(c *gin.Context) {
	student, _, err := h.results.Find(c.Query("q"))
	switch {
	case errors.Is(err, results.ErrNoResults):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": "No results on server"})
	case err != nil:
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": "not found"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "student": student})
	}
}

// DownloadStudentCSV serves /student/download/<roll>.csv.
func (h *Handler) DownloadStudentCSV(c *gin.Context) {
	file := c.Param("file")
	roll, ok := strings.CutSuffix(file, ".csv")
	if !ok || roll == "" {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	student, _, err := h.results.Find(roll)
	switch {
	case errors.Is(err, results.ErrNoResults):
		c.String(http.StatusNotFound, "No results stored")
		return
	case err != nil:
		c.String(http.StatusNotFound, "No student")
		return
	}

	var buf bytes.Buffer
	if err := results.WriteCSV(&buf, student); err != nil {
		logError(c, "write csv failed", err, "roll", roll)
		c.String(http.StatusInternalServerError, "Failed to build CSV")
		return
	}
	c.Header("Content-Disposition", attachment("results_"+roll+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Report renders the report for a roll number; ?pdf=1 asks for PDF.
func (h *Handler) Report(c *gin.Context) {
	roll := c.Param("roll")
	sum, err := h.results.Summarize(roll)
	if err != nil {
		h.reportNotFound(c, roll, err)
		return
	}

	out, err := h.reports.Render(c.Request.Context(), report.NewContext(sum, h.now()), c.Query("pdf") == "1")
	if err != nil {
		logError(c, "render report failed", err, "roll", roll)
		c.String(http.StatusInternalServerError, "Failed to render report")
		return
	}
	if out.IsPDF() {
		c.Header("Content-Disposition", attachment("report_"+roll+".pdf"))
	}
	c.Data(http.StatusOK, out.ContentType, out.Body)
}

// ReportQR returns a QR code linking to the student's report.
func (h *Handler) ReportQR(c *gin.Context) {
	roll := c.Param("roll")
	if _, _, err := h.results.Find(roll); err != nil {
		h.reportNotFound(c, roll, err)
		return
	}
	png, err := report.QRCode(reportURL(c, roll), qrSize)
	if err != nil {
		logError(c, "qr generation failed", err, "roll", roll)
		c.String(http.StatusInternalServerError, "Failed to generate QR")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) reportNotFound(c *gin.Context, roll string, err error) {
	if errors.Is(err, results.ErrNoResults) {
		c.String(http.StatusNotFound, msgNoResultsForReport)
		return
	}
	c.String(http.StatusNotFound, "No results found for roll no %s", roll)
}

// reportURL builds the absolute report URL, honouring proxy headers.
func reportURL(c *gin.Context, roll string) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	host := c.Request.Host
	if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + host + "/report/" + url.PathEscape(roll)
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
