package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	judgeCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leetai",
		Subsystem: "judge",
		Name:      "call_duration_seconds",
		Help:      "Duration of judge service HTTP calls",
	}, []string{"op"})

	judgeCallFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leetai",
		Subsystem: "judge",
		Name:      "call_failures_total",
		Help:      "Number of failed judge service HTTP calls",
	}, []string{"op"})
)

// DefaultPollInterval is the fixed delay between batch status polls.
const DefaultPollInterval = 1500 * time.Millisecond

// Config describes how to reach the judge service. BaseURL points at the
// single-submission endpoint (".../submissions"); the batch endpoints are
// derived from it.
type Config struct {
	BaseURL      string
	AuthToken    string
	PollInterval time.Duration
	HTTPClient   *http.Client
}

// Client talks to the external judge service. All calls pass through the
// shared rate limiter.
type Client struct {
	baseURL      string
	authToken    string
	pollInterval time.Duration
	http         *http.Client
	limiter      *Limiter
	logger       zerolog.Logger
}

// NewClient constructs a judge client. A nil limiter gets the default budget.
func NewClient(cfg Config, limiter *Limiter, logger zerolog.Logger) *Client {
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxCalls, DefaultWindow, DefaultCallDelay)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		authToken:    cfg.AuthToken,
		pollInterval: cfg.PollInterval,
		http:         cfg.HTTPClient,
		limiter:      limiter,
		logger:       logger.With().Str("component", "judge_client").Logger(),
	}
}

// batchURL derives the batch endpoint from the single-submission base URL.
func (c *Client) batchURL() string {
	return strings.Replace(c.baseURL, "/submissions", "", 1) + "/api/submissions/batch"
}

type executeRequest struct {
	LanguageID             int    `json:"language_id"`
	SourceCode             string `json:"source_code"`
	Stdin                  string `json:"stdin"`
	RedirectStderrToStdout bool   `json:"redirect_stderr_to_stdout"`
}

type batchEnvelope struct {
	Submissions []Result `json:"submissions"`
}

// Execute runs a single source against one stdin and waits for the result.
// It is used for ad-hoc validation, such as checking an admin-supplied test
// case against a problem's canonical solution.
func (c *Client) Execute(ctx context.Context, sourceCode, language, stdin string) (Result, error) {
	if err := c.limiter.Acquire(); err != nil {
		return Result{}, err
	}

	body := executeRequest{
		LanguageID:             LanguageID(language),
		SourceCode:             sourceCode,
		Stdin:                  stdin,
		RedirectStderrToStdout: true,
	}

	raw, err := c.post(ctx, "execute", c.baseURL+"?base64_encoded=false&wait=true", body)
	if err != nil {
		return Result{}, err
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		judgeCallFailures.WithLabelValues("execute").Inc()
		return Result{}, &ExecutionError{Op: "execute", Err: fmt.Errorf("decode response: %w", err)}
	}
	return result, nil
}

// SubmitBatch submits the requests in one batch call and returns one opaque
// token per request, in submission order. The rate limiter is charged once
// for the whole batch.
func (c *Client) SubmitBatch(ctx context.Context, requests []BatchRequest) ([]string, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	if err := c.limiter.Acquire(); err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, "submit_batch", c.batchURL()+"?base64_encoded=false", requests)
	if err != nil {
		return nil, err
	}

	results, err := decodeBatch(raw)
	if err != nil {
		judgeCallFailures.WithLabelValues("submit_batch").Inc()
		return nil, &ExecutionError{Op: "submit_batch", Err: err}
	}

	tokens := make([]string, 0, len(results))
	for _, r := range results {
		if r.Token != "" {
			tokens = append(tokens, r.Token)
		}
	}
	return tokens, nil
}

// PollBatch blocks until every token's status is terminal, querying the batch
// status endpoint at the configured interval. Transient poll failures are
// logged and retried; the loop only returns early when ctx is cancelled.
// Callers that need a bounded wait attach a deadline to ctx; the default is
// to wait for the judge indefinitely.
func (c *Client) PollBatch(ctx context.Context, tokens []string) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	url := c.batchURL() + "?tokens=" + strings.Join(tokens, ",") + "&base64_encoded=false"
	for {
		results, err := c.pollOnce(ctx, url)
		if err == nil {
			done := true
			for _, r := range results {
				if !r.Status.Terminal() {
					done = false
					break
				}
			}
			if done {
				return results, nil
			}
		} else {
			c.logger.Warn().Err(err).Msg("batch poll failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, &ExecutionError{Op: "poll_batch", Err: ctx.Err()}
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, url string) ([]Result, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		judgeCallFailures.WithLabelValues("poll_batch").Inc()
		return nil, err
	}
	defer resp.Body.Close()
	judgeCallDuration.WithLabelValues("poll_batch").Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		judgeCallFailures.WithLabelValues("poll_batch").Inc()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var envelope batchEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return envelope.Submissions, nil
}

func (c *Client) post(ctx context.Context, op, url string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ExecutionError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ExecutionError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		judgeCallFailures.WithLabelValues(op).Inc()
		return nil, &ExecutionError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	judgeCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		judgeCallFailures.WithLabelValues(op).Inc()
		return nil, &ExecutionError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		judgeCallFailures.WithLabelValues(op).Inc()
		return nil, &ExecutionError{Op: op, Err: err}
	}
	return raw, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if strings.TrimSpace(c.authToken) != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}
}

// decodeBatch accepts both response shapes the judge uses for batch calls: a
// bare array and an object wrapping a "submissions" array.
func decodeBatch(raw []byte) ([]Result, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var results []Result
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("decode batch response: %w", err)
		}
		return results, nil
	}
	var envelope batchEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	return envelope.Submissions, nil
}
