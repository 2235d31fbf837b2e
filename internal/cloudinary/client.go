// Package cloudinary archives stored images to a Cloudinary account through
// its signed upload endpoint.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.cloudinary.com"

// Client archives images under Folder in one Cloudinary cloud.
type Client struct {
	BaseURL   string
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	HTTP      *http.Client
	now       func() time.Time
}

func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		BaseURL:   DefaultBaseURL,
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

// Archive uploads the image at file into Folder/subfolder and returns the
// secure URL Cloudinary assigned to it.
func (c *Client) Archive(ctx context.Context, file, subfolder string) (string, error) {
	img, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("cloudinary: %w", err)
	}
	defer img.Close()

	fields := map[string]string{
		"api_key":   c.APIKey,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if folder := strings.Trim(path.Join(c.Folder, subfolder), "/"); folder != "" && folder != "." {
		fields["folder"] = folder
	}
	fields["signature"] = c.sign(fields)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return "", fmt.Errorf("cloudinary: form field %s: %w", k, err)
		}
	}
	part, err := form.CreateFormFile("file", filepath.Base(file))
	if err != nil {
		return "", fmt.Errorf("cloudinary: form file: %w", err)
	}
	if _, err := io.Copy(part, img); err != nil {
		return "", fmt.Errorf("cloudinary: copy %s: %w", file, err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("cloudinary: close form: %w", err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/v1_1/" + c.CloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("cloudinary: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary: upload %s: %w", filepath.Base(file), err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("cloudinary: upload %s: status %d: %s", filepath.Base(file), resp.StatusCode, raw)
	}
	var uploaded struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.Unmarshal(raw, &uploaded); err != nil {
		return "", fmt.Errorf("cloudinary: decode response: %w", err)
	}
	if uploaded.SecureURL == "" {
		return "", fmt.Errorf("cloudinary: upload %s: response has no secure_url", filepath.Base(file))
	}
	return uploaded.SecureURL, nil
}

// sign is the hex SHA-1 of the sorted signable fields followed by the secret.
// api_key, file and resource_type never take part.
func (c *Client) sign(fields map[string]string) string {
	signable := make([]string, 0, len(fields))
	for k, v := range fields {
		switch k {
		case "api_key", "file", "resource_type":
			continue
		}
		if v != "" {
			signable = append(signable, k+"="+v)
		}
	}
	sort.Strings(signable)
	sum := sha1.Sum([]byte(strings.Join(signable, "&") + c.APISecret))
	return hex.EncodeToString(sum[:])
}
