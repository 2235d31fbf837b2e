package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSignExcludesKeyAndFile(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "100", "folder": "college/captures", "api_key": "key", "file": "x"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=college/captures&timestamp=100secret")))
	if got != want {
		t.Fatalf("sign = %s, want %s", got, want)
	}
}

func TestArchiveUploadsFile(t *testing.T) {
	var gotFolder, gotFile, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotFolder = r.FormValue("folder")
		f, _, err := r.FormFile("file")
		if err == nil {
			b, _ := io.ReadAll(f)
			gotFile = string(b)
		}
		fmt.Fprint(w, `{"public_id":"p1","secure_url":"https://cdn.example/p1.jpg"}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "college")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(100, 0) }

	p := filepath.Join(t.TempDir(), "capture.jpg")
	if err := os.WriteFile(p, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	url, err := c.Archive(context.Background(), p, "captures")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example/p1.jpg" {
		t.Fatalf("url = %s", url)
	}
	if gotPath != "/v1_1/demo/image/upload" || gotFolder != "college/captures" || gotFile != "img" {
		t.Fatalf("path=%s folder=%s file=%s", gotPath, gotFolder, gotFile)
	}
}

func TestArchiveRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad signature"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	p := filepath.Join(t.TempDir(), "a.png")
	os.WriteFile(p, []byte("img"), 0o644)
	if _, err := c.Archive(context.Background(), p, ""); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestArchiveWithoutFolder(t *testing.T) {
	var hasFolder bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		_, hasFolder = r.MultipartForm.Value["folder"]
		fmt.Fprint(w, `{"public_id":"p2"}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	p := filepath.Join(t.TempDir(), "b.jpg")
	if err := os.WriteFile(p, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Archive(context.Background(), p, ""); err == nil {
		t.Fatal("expected error for response without secure_url")
	}
	if hasFolder {
		t.Fatal("folder field sent with no folder configured")
	}
}

func TestArchiveMissingFile(t *testing.T) {
	c := New("demo", "key", "secret", "")
	if _, err := c.Archive(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"), ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}
