package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Judge0Runner implements Runner for a Judge0-compatible HTTP API.
type Judge0Runner struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Judge0Option configures a Judge0Runner.
type Judge0Option func(*Judge0Runner)

// WithJudge0HTTPClient sets a custom HTTP client.
func WithJudge0HTTPClient(client *http.Client) Judge0Option {
	return func(r *Judge0Runner) {
		r.client = client
	}
}

// WithJudge0APIKey sets the X-Auth-Token sent with every request.
func WithJudge0APIKey(key string) Judge0Option {
	return func(r *Judge0Runner) {
		r.apiKey = key
	}
}

// NewJudge0Runner creates a new Judge0 runner.
func NewJudge0Runner(baseURL string, opts ...Judge0Option) *Judge0Runner {
	r := &Judge0Runner{
		baseURL: baseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type judge0Response struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	ExitCode      *int    `json:"exit_code"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

func (r *Judge0Runner) Run(ctx context.Context, sub Submission) (Result, error) {
	if sub.LanguageID <= 0 {
		return Result{}, fmt.Errorf("language_id is required")
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/submissions?base64_encoded=false&wait=true", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-Auth-Token", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Result{}, fmt.Errorf("judge0 api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var jr judge0Response
	if err := json.Unmarshal(respBody, &jr); err != nil {
		return Result{}, fmt.Errorf("unmarshal response: %w", err)
	}

	res := Result{
		ExitCode: -1,
		Stdout:   deref(jr.Stdout),
		Stderr:   deref(jr.Stderr),
	}
	if jr.ExitCode != nil {
		res.ExitCode = *jr.ExitCode
	}
	if res.Stderr == "" && jr.CompileOutput != nil {
		res.Stderr = *jr.CompileOutput
	}
	return res, nil
}

func (r *Judge0Runner) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/about", nil)
	if err != nil {
		return err
	}
	if r.apiKey != "" {
		req.Header.Set("X-Auth-Token", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
