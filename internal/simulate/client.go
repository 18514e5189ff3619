package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/attendance/internal/domain/model"
)

// client wraps http.Client with JSON helpers for the kiosk API.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type identityResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type attendanceResponse struct {
	Matched   bool `json:"matched"`
	Recorded  bool `json:"recorded"`
	Duplicate bool `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type statsResponse struct {
	Identities      int `json:"identities"`
	TodayAttendance int `json:"today_attendance"`
	TotalRecords    int `json:"total_records"`
}

// do sends body as JSON and decodes a 2xx response into out. Other statuses
// come back as an error carrying the API error code.
func (c *client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", ErrRequest, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorResponse
		_ = json.Unmarshal(data, &apiErr)
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrRequest, method, path, resp.StatusCode, apiErr.Code)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *client) health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

func (c *client) register(ctx context.Context, p Profile) (int, error) {
	var out identityResponse
	return c.do(ctx, http.MethodPost, "/identities", map[string]any{
		"name":        p.Name,
		"descriptors": []model.Descriptor{p.Base},
	}, &out)
}

func (c *client) identities(ctx context.Context) ([]identityResponse, error) {
	var out []identityResponse
	_, err := c.do(ctx, http.MethodGet, "/identities", nil, &out)
	return out, err
}

func (c *client) attend(ctx context.Context, f Frame) (attendanceResponse, error) {
	var out attendanceResponse
	_, err := c.do(ctx, http.MethodPost, "/attendance", map[string]any{
		"descriptor": f.Descriptor,
		"request_id": f.RequestID,
	}, &out)
	return out, err
}

func (c *client) events(ctx context.Context, namePrefix string) ([]model.AttendanceEvent, error) {
	var out []model.AttendanceEvent
	_, err := c.do(ctx, http.MethodGet, "/events?name="+url.QueryEscape(namePrefix), nil, &out)
	return out, err
}

func (c *client) stats(ctx context.Context) (statsResponse, error) {
	var out statsResponse
	_, err := c.do(ctx, http.MethodGet, "/stats", nil, &out)
	return out, err
}
