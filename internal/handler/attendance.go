package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sachintanwar1/College-Management-System/internal/attendance"
)

// Recognize records a capture sent as a JSON data URL, a form data URL or a
// file part named "file".
func (h *Handler) Recognize(c *gin.Context) {
	in, closeFn := captureInput(c)
	defer closeFn()

	rec, err := h.attendance.Capture(c.Request.Context(), in)
	switch {
	case errors.Is(err, attendance.ErrNoImage):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "No image provided"})
	case errors.Is(err, attendance.ErrSaveImage):
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Failed to save image"})
	case err != nil:
		logError(c, "record attendance failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Failed to record attendance"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"ok":     true,
			"id":     rec.ID,
			"name":   rec.Name,
			"status": rec.Status,
			"ts":     rec.TS,
		})
	}
}

// GetAttendance lists every capture.
func (h *Handler) GetAttendance(c *gin.Context) {
	c.JSON(http.StatusOK, h.attendance.List())
}

// ClearAttendance empties the attendance log.
func (h *Handler) ClearAttendance(c *gin.Context) {
	if err := h.attendance.Clear(c.Request.Context()); err != nil {
		logError(c, "clear attendance failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Failed to clear attendance"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func captureInput(c *gin.Context) (attendance.Capture, func()) {
	noop := func() {}
	if isJSON(c) {
		var body struct {
			Image any `json:"image"`
		}
		if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
			return attendance.Capture{}, noop
		}
		s, _ := body.Image.(string)
		return attendance.Capture{DataURL: s}, noop
	}
	if s := c.PostForm("image"); s != "" {
		return attendance.Capture{DataURL: s}, noop
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return attendance.Capture{}, noop
	}
	f, err := fh.Open()
	if err != nil {
		logWarn(c, "open uploaded capture failed", "error", err)
		return attendance.Capture{}, noop
	}
	return attendance.Capture{File: f, Filename: fh.Filename}, func() { _ = f.Close() }
}
