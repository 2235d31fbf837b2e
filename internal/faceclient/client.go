package faceclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// FaceQuality contains face quality metrics.
type FaceQuality struct {
	Score     float64 `json:"score"`
	Blur      float64 `json:"blur"`
	IsFrontal bool    `json:"is_frontal"`
}

// EnrollResult contains face enrollment response.
type EnrollResult struct {
	UserID  string
	Success bool
	Quality *FaceQuality
	Message string
}

// SearchMatch represents a face match from gallery search.
type SearchMatch struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
	Name       string  `json:"name,omitempty"`
}

// SearchResult contains 1:N search results.
type SearchResult struct {
	Matches       []SearchMatch
	FacesDetected int
	Quality       *FaceQuality
}

// Client calls the face recognition microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // Face processing can take time
		},
	}
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}

// Enroll adds the face stored at imagePath to the recognition gallery.
func (c *Client) Enroll(ctx context.Context, userID, imagePath, name string) (*EnrollResult, error) {
	if c.Skip {
		return &EnrollResult{
			UserID:  userID,
			Success: true,
			Quality: &FaceQuality{Score: 0.85, IsFrontal: true},
			Message: "Face enrolled (mock)",
		}, nil
	}

	image, err := encodeFile(imagePath)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"user_id":      userID,
		"image_base64": image,
	}
	if name != "" {
		payload["name"] = name
	}

	var out struct {
		UserID  string       `json:"user_id"`
		Success bool         `json:"success"`
		Quality *FaceQuality `json:"quality"`
		Message string       `json:"message"`
	}
	if err := c.post(ctx, "/enroll", payload, &out); err != nil {
		return nil, err
	}

	return &EnrollResult{
		UserID:  out.UserID,
		Success: out.Success,
		Quality: out.Quality,
		Message: out.Message,
	}, nil
}

// Search performs 1:N face identification of the image at imagePath against
// the enrolled gallery. In skip mode nothing is ever matched.
func (c *Client) Search(ctx context.Context, imagePath string, topK int, threshold float64) (*SearchResult, error) {
	if c.Skip {
		return &SearchResult{}, nil
	}

	image, err := encodeFile(imagePath)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"image_base64": image,
		"top_k":        topK,
	}
	if threshold > 0 {
		payload["threshold"] = threshold
	}

	var out struct {
		Matches       []SearchMatch `json:"matches"`
		FacesDetected int           `json:"faces_detected"`
		Quality       *FaceQuality  `json:"quality"`
	}
	if err := c.post(ctx, "/search", payload, &out); err != nil {
		return nil, err
	}

	return &SearchResult{
		Matches:       out.Matches,
		FacesDetected: out.FacesDetected,
		Quality:       out.Quality,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func encodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
