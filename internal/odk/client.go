package odk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/posko-sync/internal/model"
)

// ErrVersionConflict is returned when the platform rejects an update
// because the supplied base version is stale.
var ErrVersionConflict = errors.New("entity version conflict")

// Client is an HTTP client for the ODK Central entity API
type Client struct {
	config     Config
	httpClient *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	lastReq  time.Time
}

// NewClient creates a new ODK Central client
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// authenticate gets a session token from ODK Central
func (c *Client) authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Check if token is still valid
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return nil
	}

	authURL := fmt.Sprintf("%s/v1/sessions", c.config.BaseURL)

	payload, err := json.Marshal(map[string]string{
		"email":    c.config.Email,
		"password": c.config.Password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("authentication failed with status %d: %s", resp.StatusCode, string(body))
	}

	var authResp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	c.token = authResp.Token
	c.tokenExp = authResp.ExpiresAt
	return nil
}

// throttle enforces the minimum delay between consecutive platform
// requests.
func (c *Client) throttle() {
	if c.config.RequestDelay <= 0 {
		return
	}

	c.mu.Lock()
	wait := c.config.RequestDelay - time.Since(c.lastReq)
	if wait < 0 {
		wait = 0
	}
	c.lastReq = time.Now().Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

// do runs one authenticated request against the platform.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}
	c.throttle()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// ListEntities fetches every entity in a dataset with label, version and
// property map.
func (c *Client) ListEntities(ctx context.Context, dataset string) ([]model.ExternalEntity, error) {
	url := fmt.Sprintf("%s/v1/projects/%d/datasets/%s/entities",
		c.config.BaseURL, c.config.ProjectID, dataset)

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("entity list failed with status %d: %s", resp.StatusCode, string(body))
	}

	var raw []entity
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode entity list: %w", err)
	}

	entities := make([]model.ExternalEntity, 0, len(raw))
	for _, e := range raw {
		entities = append(entities, toModel(e))
	}
	return entities, nil
}

// GetEntity fetches one entity's current version, used for the re-fetch
// after a version conflict.
func (c *Client) GetEntity(ctx context.Context, dataset, id string) (*model.ExternalEntity, error) {
	url := fmt.Sprintf("%s/v1/projects/%d/datasets/%s/entities/%s",
		c.config.BaseURL, c.config.ProjectID, dataset, id)

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entity %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("entity fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var raw entity
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}

	m := toModel(raw)
	return &m, nil
}

// UpdateEntity patches one entity's label and properties conditioned on
// baseVersion. The platform rejects the write with a conflict when the
// entity has moved past baseVersion.
func (c *Client) UpdateEntity(ctx context.Context, dataset, id, label string, data map[string]string, baseVersion int) error {
	url := fmt.Sprintf("%s/v1/projects/%d/datasets/%s/entities/%s?baseVersion=%d",
		c.config.BaseURL, c.config.ProjectID, dataset, id, baseVersion)

	payload, err := json.Marshal(entityPatch{Label: label, Data: data})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPatch, url, payload)
	if err != nil {
		return fmt.Errorf("failed to update entity %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("entity %s at base version %d: %w", id, baseVersion, ErrVersionConflict)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("entity update failed with status %d: %s", resp.StatusCode, string(body))
	}
}

func toModel(e entity) model.ExternalEntity {
	data := e.CurrentVersion.Data
	if data == nil {
		data = map[string]string{}
	}
	return model.ExternalEntity{
		ID:      e.UUID,
		Label:   e.CurrentVersion.Label,
		Version: e.CurrentVersion.Version,
		Data:    data,
	}
}
