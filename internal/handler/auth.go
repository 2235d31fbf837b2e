package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sachintanwar1/College-Management-System/internal/auth"
	"github.com/sachintanwar1/College-Management-System/internal/model"
	"github.com/sachintanwar1/College-Management-System/internal/results"
)

type adminLoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type teacherLoginRequest struct {
	TeacherID   string `json:"teacherId" form:"teacherId" binding:"required"`
	TeacherName string `json:"teacherName" form:"teacherName" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token" binding:"required"`
}

// AdminLogin exchanges the configured admin credentials for tokens.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	if h.admin == nil || !h.admin.Check(strings.TrimSpace(req.Username), req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	h.issueTokens(c, req.Username, "Administrator", auth.RoleAdmin)
}

// TeacherLogin signs a teacher in by id and name.
func (h *Handler) TeacherLogin(c *gin.Context) {
	var req teacherLoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide Teacher ID & Name"})
		return
	}
	id, name := strings.TrimSpace(req.TeacherID), strings.TrimSpace(req.TeacherName)
	if id == "" || name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide Teacher ID & Name"})
		return
	}
	h.issueTokens(c, id, name, auth.RoleTeacher)
}

// Refresh trades a refresh token for a new pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}
	pair, claims, err := h.issuer.Refresh(req.RefreshToken)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, auth.ErrWrongTokenType) {
			msg = "not a refresh token"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, tokenResponse(pair, claims.Role))
}

// AdminDashboard lists every registered teacher and student.
func (h *Handler) AdminDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"teachers": h.enrollment.Teachers(),
		"students": h.enrollment.Students(),
	})
}

// TeacherDashboard returns the signed-in teacher and the current marks.
func (h *Handler) TeacherDashboard(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	marks := []model.Record{}
	if doc, ok := h.results.Marks(); ok && doc.Records != nil {
		marks = doc.Records
	}
	c.JSON(http.StatusOK, gin.H{
		"teacher": gin.H{"id": claims.Subject, "name": claims.Name},
		"marks":   marks,
	})
}

// TeacherSaveMarks stores marks like UploadMarks. Without a caller meta or
// lastSavedBy the document is stamped with the signed-in teacher.
func (h *Handler) TeacherSaveMarks(c *gin.Context) {
	if !isJSON(c) {
		badJSON(c)
		return
	}
	var up results.MarksUpload
	if err := json.NewDecoder(c.Request.Body).Decode(&up); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON payload"})
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	if up.LastSavedBy == nil {
		up.LastSavedBy = map[string]any{"id": claims.Subject, "name": claims.Name}
	}
	savedAt, err := h.results.SaveMarks(c.Request.Context(), up)
	if err != nil {
		logError(c, "save marks failed", err, "teacher", claims.Subject)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save marks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "saved_at": savedAt})
}

// UploadCSV previews an uploaded marks spreadsheet exported as CSV.
func (h *Handler) UploadCSV(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file"})
		return
	}
	defer f.Close()

	rows, err := results.PreviewCSV(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not parse CSV"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rows": rows})
}

func (h *Handler) issueTokens(c *gin.Context, subject, name, role string) {
	pair, err := h.issuer.Issue(subject, name, role)
	if err != nil {
		logError(c, "issue token failed", err, "subject", subject)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse(pair, role))
}

func tokenResponse(pair auth.TokenPair, role string) gin.H {
	return gin.H{
		"access_token":       pair.AccessToken,
		"refresh_token":      pair.RefreshToken,
		"access_expires_at":  pair.AccessExp.UTC().Format(time.RFC3339),
		"refresh_expires_at": pair.RefreshExp.UTC().Format(time.RFC3339),
		"role":               role,
	}
}
