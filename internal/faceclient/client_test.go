package faceclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeImage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "face.jpg")
	if err := os.WriteFile(p, []byte("jpegbytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSearchPostsEncodedImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["image_base64"] != base64.StdEncoding.EncodeToString([]byte("jpegbytes")) {
			t.Errorf("image_base64 = %v", body["image_base64"])
		}
		if body["top_k"] != float64(1) {
			t.Errorf("top_k = %v", body["top_k"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"matches":        []map[string]any{{"user_id": "STD-7", "similarity": 0.91, "name": "Asha"}},
			"faces_detected": 1,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	res, err := c.Search(context.Background(), writeImage(t), 1, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Matches) != 1 || res.Matches[0].UserID != "STD-7" || res.Matches[0].Name != "Asha" {
		t.Fatalf("matches = %+v", res.Matches)
	}
}

func TestSearchServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := New(srv.URL, false).Search(context.Background(), writeImage(t), 1, 0); err == nil {
		t.Fatal("expected error from 502")
	}
}

func TestSkipModeNeverCallsService(t *testing.T) {
	c := New("http://127.0.0.1:1", true)
	res, err := c.Search(context.Background(), "missing.jpg", 1, 0)
	if err != nil || len(res.Matches) != 0 {
		t.Fatalf("skip search = %+v, %v", res, err)
	}
	enr, err := c.Enroll(context.Background(), "T1", "missing.jpg", "")
	if err != nil || !enr.Success {
		t.Fatalf("skip enroll = %+v, %v", enr, err)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Fatal(err)
	}
}
