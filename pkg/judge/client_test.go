package judge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	limiter := NewLimiter(1000, time.Minute, 0)
	client := NewClient(Config{
		BaseURL:      server.URL + "/submissions",
		AuthToken:    "test-token",
		PollInterval: 5 * time.Millisecond,
	}, limiter, zerolog.Nop())
	return client, server
}

func TestExecuteMapsResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/submissions", r.URL.Path)
		require.Equal(t, "false", r.URL.Query().Get("base64_encoded"))
		require.Equal(t, "true", r.URL.Query().Get("wait"))
		require.Equal(t, "test-token", r.Header.Get("X-Auth-Token"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, float64(LangJava), payload["language_id"])
		require.Equal(t, "1 2", payload["stdin"])

		_ = json.NewEncoder(w).Encode(Result{
			Token:  "tok-1",
			Status: Status{ID: StatusAccepted, Description: "Accepted"},
			Stdout: "3\n",
			Time:   "0.021",
		})
	}))

	result, err := client.Execute(context.Background(), "class Main {}", "Java", "1 2")
	require.NoError(t, err)
	require.True(t, result.Accepted())
	require.Equal(t, "3", result.Output())
	require.Equal(t, int64(21), result.RuntimeMs())
}

func TestExecuteReturnsExecutionErrorOnBadStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := client.Execute(context.Background(), "print(1)", "python", "")
	require.Error(t, err)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	require.Contains(t, err.Error(), "502")
}

func TestExecuteFailsFastWhenRateLimited(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(Result{Status: Status{ID: StatusAccepted}})
	}))
	client.limiter = NewLimiter(1, time.Minute, 0)

	_, err := client.Execute(context.Background(), "print(1)", "python", "")
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), "print(1)", "python", "")
	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	require.Equal(t, 1, calls, "rate-limited call must not reach the judge")
}

func TestSubmitBatchReturnsTokensInOrder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/submissions/batch", r.URL.Path)

		var requests []BatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&requests))
		require.Len(t, requests, 2)
		require.Equal(t, DefaultCPUTimeLimit, requests[0].CPUTimeLimit)
		require.Equal(t, DefaultMemoryLimit, requests[0].MemoryLimit)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"token":"tok-a"},{"token":"tok-b"}]`))
	}))

	requests := []BatchRequest{
		NewBatchRequest(LangPython, "print(input())", "1\n1", "1"),
		NewBatchRequest(LangPython, "print(input())", "2\n1 2", "3"),
	}
	tokens, err := client.SubmitBatch(context.Background(), requests)
	require.NoError(t, err)
	require.Equal(t, []string{"tok-a", "tok-b"}, tokens)
}

func TestSubmitBatchAcceptsWrappedResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"submissions":[{"token":"tok-a"}]}`))
	}))

	tokens, err := client.SubmitBatch(context.Background(), []BatchRequest{NewBatchRequest(LangGo, "package main", "", "")})
	require.NoError(t, err)
	require.Equal(t, []string{"tok-a"}, tokens)
}

func TestPollBatchWaitsForTerminalStatuses(t *testing.T) {
	var polls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tok-a,tok-b", r.URL.Query().Get("tokens"))

		if polls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"submissions":[{"token":"tok-a","status":{"id":3}},{"token":"tok-b","status":{"id":2}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"submissions":[{"token":"tok-a","status":{"id":3},"stdout":"1"},{"token":"tok-b","status":{"id":6},"compile_output":"syntax error"}]}`))
	}))

	results, err := client.PollBatch(context.Background(), []string{"tok-a", "tok-b"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, polls.Load(), int32(2))
	require.Len(t, results, 2)
	require.True(t, results[0].Accepted())
	require.Equal(t, StatusCompileError, results[1].Status.ID)
	require.Equal(t, "syntax error", results[1].Output())
}

func TestPollBatchRetriesAfterTransientFailures(t *testing.T) {
	var polls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
			return
		}
		_, _ = w.Write([]byte(`{"submissions":[{"token":"tok-a","status":{"id":4},"stderr":"wrong answer"}]}`))
	}))

	results, err := client.PollBatch(context.Background(), []string{"tok-a"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Accepted())
}

func TestPollBatchHonoursContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"submissions":[{"token":"tok-a","status":{"id":1}}]}`))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.PollBatch(ctx, []string{"tok-a"})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLanguageIDRoundTrips(t *testing.T) {
	require.Equal(t, LangJava, LanguageID("Java"))
	require.Equal(t, LangJava, LanguageID("java"))
	require.Equal(t, LangJava, LanguageID("JAVA"))
	require.Equal(t, LangCPP, LanguageID("c++"))
	require.Equal(t, LangCPP, LanguageID("cpp"))
	require.Equal(t, LangC, LanguageID("c"))
	require.Equal(t, LangTypeScript, LanguageID("ts"))
	require.Equal(t, LangPython, LanguageID("py"))

	// Documented fallback: unknown names are judged as Python.
	require.Equal(t, LangPython, LanguageID("brainfuck"))
	require.False(t, SupportedLanguage("brainfuck"))

	require.Equal(t, "Java", LanguageName(LangJava))
	require.Equal(t, "Unknown", LanguageName(9999))
}

func TestResultOutputPrecedence(t *testing.T) {
	require.Equal(t, "out", Result{Stdout: " out \n", Stderr: "err"}.Output())
	require.Equal(t, "err", Result{Stderr: "err\n", CompileOutput: "cc"}.Output())
	require.Equal(t, "cc", Result{CompileOutput: " cc"}.Output())
	require.Equal(t, "", Result{}.Output())
}
