// Package report renders per-student result reports as HTML, and as PDF when
// a converter is available.
package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/sachintanwar1/College-Management-System/internal/logger"
	"github.com/sachintanwar1/College-Management-System/internal/metrics"
	"github.com/sachintanwar1/College-Management-System/internal/model"
	"github.com/sachintanwar1/College-Management-System/internal/results"
)

//go:embed templates/report.html
var templateFS embed.FS

// DefaultPreparedBy is used when the results document names no saver.
const DefaultPreparedBy = "System"

const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypePDF  = "application/pdf"
)

// Context is the data a report template is rendered with.
type Context struct {
	Student     model.Record
	Semesters   []model.Record
	GeneratedAt string
	PreparedBy  string
	TotalMarks  results.Figure
	AvgGPA      results.Figure
	Remarks     string
}

// NewContext builds the report context for a matched student.
func NewContext(sum results.Summary, now time.Time) Context {
	return Context{
		Student:     sum.Student,
		Semesters:   sum.Student.List("semesters"),
		GeneratedAt: model.Timestamp(now),
		PreparedBy:  sum.Document.SavedByName(DefaultPreparedBy),
		TotalMarks:  sum.Totals.TotalMarks,
		AvgGPA:      sum.Totals.AvgGPA,
		Remarks:     sum.Document.Remarks(),
	}
}

// Output is a rendered report.
type Output struct {
	Body        []byte
	ContentType string
}

// IsPDF reports whether the output was converted to PDF.
func (o Output) IsPDF() bool { return o.ContentType == ContentTypePDF }

// Renderer renders reports. The HTML path never depends on the converter.
type Renderer struct {
	tmpl *template.Template
	conv Converter
}

// NewRenderer parses the embedded template. conv may be nil, in which case
// PDF requests are served as HTML.
func NewRenderer(conv Converter) (*Renderer, error) {
	tmpl, err := template.New("report.html").
		Funcs(template.FuncMap{"field": field}).
		ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Renderer{tmpl: tmpl, conv: conv}, nil
}

// HTML writes the HTML report.
func (r *Renderer) HTML(w io.Writer, c Context) error {
	return r.tmpl.Execute(w, c)
}

// Render produces the report. When wantPDF is set and conversion fails for
// any reason the HTML report is returned instead.
func (r *Renderer) Render(ctx context.Context, c Context, wantPDF bool) (Output, error) {
	var buf bytes.Buffer
	if err := r.HTML(&buf, c); err != nil {
		return Output{}, fmt.Errorf("render report: %w", err)
	}
	html := Output{Body: buf.Bytes(), ContentType: ContentTypeHTML}
	if !wantPDF {
		metrics.ReportsRendered.WithLabelValues("html").Inc()
		return html, nil
	}

	if r.conv == nil {
		return r.fallback(html, ErrNoConverter), nil
	}
	pdf, err := r.conv.Convert(ctx, html.Body)
	if err != nil {
		return r.fallback(html, err), nil
	}
	metrics.ReportsRendered.WithLabelValues("pdf").Inc()
	return Output{Body: pdf, ContentType: ContentTypePDF}, nil
}

func (r *Renderer) fallback(html Output, err error) Output {
	logger.LogError("pdf generation failed, serving html", err)
	metrics.ReportPDFFallbacks.Inc()
	metrics.ReportsRendered.WithLabelValues("html").Inc()
	return html
}

// QRCode encodes url as a PNG of size x size pixels.
func QRCode(url string, size int) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

func field(r model.Record, key string) string {
	return r.Text(key)
}
