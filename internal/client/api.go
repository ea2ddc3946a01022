package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/pkg/requestid"
)

var ErrNotFound = errors.New("not found")

// APIClient talks to the CV analysis API on behalf of cvctl.
type APIClient struct {
	server     string
	httpClient *http.Client
}

func NewAPIClient(server string, httpClient *http.Client) *APIClient {
	return &APIClient{server: server, httpClient: httpClient}
}

type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type JobStatusResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress,omitempty"`
	Message  string  `json:"message,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Submit uploads the files as one batch.
func (c *APIClient) Submit(ctx context.Context, paths []string) (*SubmitResponse, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, p := range paths {
		if err := addFile(mw, p); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/analyses", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp SubmitResponse
	if err := c.do(req, http.StatusAccepted, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) Status(ctx context.Context, jobID string) (*JobStatusResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s", jobID), nil)
	if err != nil {
		return nil, err
	}

	var resp JobStatusResponse
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Results returns the result set bound to the client session.
func (c *APIClient) Results(ctx context.Context) (*model.ResultSet, error) {
	return c.results(ctx, "/api/v1/results")
}

func (c *APIClient) ResultsByID(ctx context.Context, resultsID string) (*model.ResultSet, error) {
	return c.results(ctx, fmt.Sprintf("/api/v1/results/%s", resultsID))
}

func (c *APIClient) results(ctx context.Context, path string) (*model.ResultSet, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var rs model.ResultSet
	if err := c.do(req, http.StatusOK, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.server+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(requestid.Header, requestid.Generate())
	return req, nil
}

func (c *APIClient) do(req *http.Request, expected int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call api: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != expected {
		var e errorResponse
		if json.Unmarshal(bodyBytes, &e) == nil && e.Message != "" {
			return fmt.Errorf("api returned status %d: %s", resp.StatusCode, e.Message)
		}
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func addFile(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	part, err := mw.CreateFormFile("cv_files", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
