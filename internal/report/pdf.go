package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNoConverter = errors.New("no pdf converter configured")

// Converter turns a rendered HTML document into a PDF.
type Converter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// WKHTMLToPDF shells out to the wkhtmltopdf binary, piping HTML on stdin and
// reading the PDF from stdout.
type WKHTMLToPDF struct {
	Path string
}

func (w WKHTMLToPDF) Convert(ctx context.Context, html []byte) ([]byte, error) {
	if w.Path == "" {
		return nil, ErrNoConverter
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, w.Path, "--quiet", "--encoding", "utf-8", "-", "-")
	cmd.Stdin = bytes.NewReader(html)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("wkhtmltopdf: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("wkhtmltopdf: empty output")
	}
	return stdout.Bytes(), nil
}
