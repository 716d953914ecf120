package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/che-incubator/dashboard-backend/model"

	dw "github.com/devfile/api/v2/pkg/apis/workspaces/v1alpha2"
)

// Client talks to a running dashboard backend on behalf of one user.
type Client struct {
	url   string
	token string
	http  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		url:   strings.TrimSuffix(baseURL, "/"),
		token: token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func nsPath(ns, rest string) string {
	return model.APIPrefix + "/namespace/" + url.PathEscape(ns) + rest
}

// --- DevWorkspaces ---

func (c *Client) ListDevWorkspaces(ctx context.Context, ns string) (*DevWorkspaceList, error) {
	var resp DevWorkspaceList
	if err := c.do(ctx, http.MethodGet, nsPath(ns, "/devworkspaces"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetDevWorkspace(ctx context.Context, ns, name string) (*dw.DevWorkspace, error) {
	var resp dw.DevWorkspace
	if err := c.do(ctx, http.MethodGet, nsPath(ns, "/devworkspaces/"+url.PathEscape(name)), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateDevWorkspace(ctx context.Context, ns string, workspace *dw.DevWorkspace) (*dw.DevWorkspace, error) {
	var resp dw.DevWorkspace
	if err := c.do(ctx, http.MethodPost, nsPath(ns, "/devworkspaces"), DevWorkspaceCreateRequest{DevWorkspace: workspace}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) PatchDevWorkspace(ctx context.Context, ns, name string, ops []PatchOp) (*dw.DevWorkspace, error) {
	var resp dw.DevWorkspace
	if err := c.do(ctx, http.MethodPatch, nsPath(ns, "/devworkspaces/"+url.PathEscape(name)), ops, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetStarted starts or stops a workspace.
func (c *Client) SetStarted(ctx context.Context, ns, name string, started bool) (*dw.DevWorkspace, error) {
	return c.PatchDevWorkspace(ctx, ns, name, []PatchOp{{Op: "add", Path: "/spec/started", Value: started}})
}

func (c *Client) DeleteDevWorkspace(ctx context.Context, ns, name string) error {
	return c.do(ctx, http.MethodDelete, nsPath(ns, "/devworkspaces/"+url.PathEscape(name)), nil, nil)
}

// --- User data ---

func (c *Client) ListSshKeys(ctx context.Context, ns string) ([]SshKey, error) {
	var resp []SshKey
	if err := c.do(ctx, http.MethodGet, nsPath(ns, "/ssh-key"), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) AddSshKey(ctx context.Context, ns string, key NewSshKey) (*SshKey, error) {
	var resp SshKey
	if err := c.do(ctx, http.MethodPost, nsPath(ns, "/ssh-key"), key, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteSshKey(ctx context.Context, ns, name string) error {
	return c.do(ctx, http.MethodDelete, nsPath(ns, "/ssh-key/"+url.PathEscape(name)), nil, nil)
}

func (c *Client) GetGitConfig(ctx context.Context, ns string) (*GitConfig, error) {
	var resp GitConfig
	if err := c.do(ctx, http.MethodGet, nsPath(ns, "/gitconfig"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) PatchGitConfig(ctx context.Context, ns string, cfg GitConfig) (*GitConfig, error) {
	var resp GitConfig
	if err := c.do(ctx, http.MethodPatch, nsPath(ns, "/gitconfig"), cfg, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetPreferences(ctx context.Context, ns string) (*Preferences, error) {
	var resp Preferences
	if err := c.do(ctx, http.MethodGet, nsPath(ns, "/devworkspace-preferences"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AddTrustedSource(ctx context.Context, ns, source string) error {
	return c.do(ctx, http.MethodPost, nsPath(ns, "/devworkspace-preferences/trusted-source"), TrustedSourceRequest{Source: source}, nil)
}

// --- Cluster ---

func (c *Client) ListEditors(ctx context.Context) ([]map[string]any, error) {
	var resp []map[string]any
	if err := c.do(ctx, http.MethodGet, model.APIPrefix+"/editors", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ListNamespaces(ctx context.Context) ([]KubeNamespace, error) {
	var resp []KubeNamespace
	if err := c.do(ctx, http.MethodGet, model.APIPrefix+"/kubernetes/namespace", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ProvisionNamespace(ctx context.Context) (*KubeNamespace, error) {
	var resp KubeNamespace
	if err := c.do(ctx, http.MethodPost, model.APIPrefix+"/kubernetes/namespace/provision", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Healthz(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{
				StatusCode: resp.StatusCode,
				Code:       errResp.Code,
				Message:    errResp.Error,
			}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dashboard error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func IsConflict(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusConflict
}

func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusUnauthorized
}
