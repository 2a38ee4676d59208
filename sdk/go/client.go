package dmakersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal DMaker HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// DeveloperSummary mirrors the employed-listing projection.
type DeveloperSummary struct {
	MemberID  string `json:"memberId"`
	Level     string `json:"developerLevel"`
	SkillType string `json:"developerSkillType"`
}

// DeveloperDetail mirrors the full record view.
type DeveloperDetail struct {
	MemberID        string `json:"memberId"`
	Name            string `json:"name"`
	Age             int    `json:"age"`
	Level           string `json:"developerLevel"`
	SkillType       string `json:"developerSkillType"`
	ExperienceYears int    `json:"experienceYears"`
	StatusCode      string `json:"statusCode"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

// RetiredDeveloper is a retirement snapshot.
type RetiredDeveloper struct {
	ID        string `json:"id"`
	MemberID  string `json:"memberId"`
	Name      string `json:"name"`
	RetiredAt string `json:"retiredAt"`
}

// Event is a journal entry.
type Event struct {
	ID       int64          `json:"id"`
	TS       string         `json:"ts"`
	Type     string         `json:"type"`
	MemberID string         `json:"memberId"`
	ActorID  string         `json:"actorId"`
	Payload  map[string]any `json:"payload"`
}

// CreateDeveloperRequest is the create payload.
type CreateDeveloperRequest struct {
	Level           string `json:"level"`
	SkillType       string `json:"skillType"`
	ExperienceYears int    `json:"experienceYears"`
	MemberID        string `json:"memberId"`
	Name            string `json:"name"`
	Age             int    `json:"age"`
}

// EditDeveloperRequest is the edit payload.
type EditDeveloperRequest struct {
	Level           string `json:"level"`
	SkillType       string `json:"skillType"`
	ExperienceYears int    `json:"experienceYears"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ListEmployed returns all employed developers.
func (c *Client) ListEmployed(ctx context.Context) ([]DeveloperSummary, error) {
	var resp []DeveloperSummary
	err := c.do(ctx, http.MethodGet, "developers", nil, &resp)
	return resp, err
}

// GetDetail fetches a developer regardless of status.
func (c *Client) GetDetail(ctx context.Context, memberID string) (DeveloperDetail, error) {
	var resp DeveloperDetail
	err := c.do(ctx, http.MethodGet, "developers/"+url.PathEscape(memberID), nil, &resp)
	return resp, err
}

// Create registers a new developer.
func (c *Client) Create(ctx context.Context, req CreateDeveloperRequest) (DeveloperDetail, error) {
	var resp DeveloperDetail
	err := c.do(ctx, http.MethodPost, "create-developer", req, &resp)
	return resp, err
}

// Edit replaces level, skill type, and experience years.
func (c *Client) Edit(ctx context.Context, memberID string, req EditDeveloperRequest) (DeveloperDetail, error) {
	var resp DeveloperDetail
	err := c.do(ctx, http.MethodPut, "developer/"+url.PathEscape(memberID), req, &resp)
	return resp, err
}

// Retire soft-deletes a developer and returns the retired detail view.
func (c *Client) Retire(ctx context.Context, memberID string) (DeveloperDetail, error) {
	var resp DeveloperDetail
	err := c.do(ctx, http.MethodDelete, "developer/"+url.PathEscape(memberID), nil, &resp)
	return resp, err
}

// ListRetired returns the retirement snapshots.
func (c *Client) ListRetired(ctx context.Context) ([]RetiredDeveloper, error) {
	var resp []RetiredDeveloper
	err := c.do(ctx, http.MethodGet, "retired-developers", nil, &resp)
	return resp, err
}

// Events returns recent journal entries.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
