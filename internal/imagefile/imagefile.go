// Package imagefile decodes uploaded images and stores them under
// collision-resistant names.
package imagefile

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var ErrDecode = errors.New("undecodable image payload")

var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// allowed upload extensions, lower case without the dot.
var allowed = map[string]bool{"png": true, "jpg": true, "jpeg": true}

// Allowed reports whether filename carries an accepted image extension.
func Allowed(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return ext != "" && allowed[strings.ToLower(ext)]
}

// SecureFilename reduces name to an ASCII file name safe to join onto a
// directory: accents are stripped, path separators and whitespace become
// underscores, and anything outside [A-Za-z0-9_.-] is dropped.
func SecureFilename(name string) string {
	var buf []rune
	for _, r := range norm.NFKD.String(name) {
		if unicode.Is(unicode.Mn, r) || r > unicode.MaxASCII {
			continue
		}
		buf = append(buf, r)
	}
	s := string(buf)
	s = strings.NewReplacer("/", " ", "\\", " ").Replace(s)
	s = strings.Join(strings.Fields(s), "_")
	s = reUnsafe.ReplaceAllString(s, "")
	return strings.Trim(s, "._")
}

// UniqueName builds "<prefix>_<UTC timestamp with microseconds>_<safe original>".
func UniqueName(prefix, original string, now time.Time) string {
	now = now.UTC()
	ts := now.Format("20060102150405") + fmt.Sprintf("%06d", now.Nanosecond()/1000)
	return fmt.Sprintf("%s_%s_%s", SecureFilename(prefix), ts, SecureFilename(original))
}

// DataURL is a decoded "data:<media type>;base64,<payload>" string.
type DataURL struct {
	Header string
	Data   []byte
}

// IsDataURL reports whether s looks like a data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURL decodes a data URL. Any malformed input yields ErrDecode.
func ParseDataURL(s string) (DataURL, error) {
	if !IsDataURL(s) {
		return DataURL{}, fmt.Errorf("%w: missing data: prefix", ErrDecode)
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok {
		return DataURL{}, fmt.Errorf("%w: missing payload separator", ErrDecode)
	}
	payload = strings.TrimSpace(payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return DataURL{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	return DataURL{Header: header, Data: data}, nil
}

// Extension picks the file extension from the media type in the header:
// "png" when the header names png, "jpg" otherwise.
func (d DataURL) Extension() string {
	if strings.Contains(strings.ToLower(d.Header), "png") {
		return "png"
	}
	return "jpg"
}

// Write stores data as dir/name, creating dir, and returns the joined path.
func Write(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	dest := filepath.Join(dir, name)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}

// Copy stores the contents of r as dir/name and returns the joined path.
func Copy(dir, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dest, err)
	}
	return dest, nil
}
