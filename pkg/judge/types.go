// Package judge wraps the external sandboxed code-execution service: single
// runs, batch submission, batch result polling, and the process-wide call
// rate limiter.
package judge

import (
	"context"
	"strconv"
	"strings"
)

// Judge status identifiers. 1 and 2 are non-terminal; everything else is
// final. 3 means the run produced the expected output, 6 means the source
// failed to compile, and any other terminal id is a runtime or logical
// failure.
const (
	StatusInQueue      = 1
	StatusProcessing   = 2
	StatusAccepted     = 3
	StatusCompileError = 6
)

// Status is the judge's state for one execution.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Terminal reports whether the status will not change further.
func (s Status) Terminal() bool {
	return s.ID != StatusInQueue && s.ID != StatusProcessing
}

// Result is the judge's view of one execution.
type Result struct {
	Token         string `json:"token"`
	Status        Status `json:"status"`
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output"`
	Time          string `json:"time"`
	Memory        int64  `json:"memory"`
}

// Accepted reports whether the run finished with the Accepted status.
func (r Result) Accepted() bool {
	return r.Status.ID == StatusAccepted
}

// Output returns the run's visible output: stdout, else stderr, else compiler
// output, else empty, always trimmed.
func (r Result) Output() string {
	out := r.Stdout
	if out == "" {
		out = r.Stderr
	}
	if out == "" {
		out = r.CompileOutput
	}
	return strings.TrimSpace(out)
}

// RuntimeMs converts the judge's wall-clock time (seconds, encoded as a
// string) into milliseconds. Unparsable or missing values count as zero.
func (r Result) RuntimeMs() int64 {
	value := strings.TrimSpace(r.Time)
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int64(seconds * 1000)
}

// BatchRequest is one execution request within a batch call.
type BatchRequest struct {
	LanguageID     int    `json:"language_id"`
	SourceCode     string `json:"source_code"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output,omitempty"`
	CPUTimeLimit   int    `json:"cpu_time_limit"`
	MemoryLimit    int    `json:"memory_limit"`
}

// Default resource limits attached to every batch request.
const (
	DefaultCPUTimeLimit = 2
	DefaultMemoryLimit  = 128
)

// NewBatchRequest builds a batch request with the default resource limits.
func NewBatchRequest(languageID int, sourceCode, stdin, expectedOutput string) BatchRequest {
	return BatchRequest{
		LanguageID:     languageID,
		SourceCode:     sourceCode,
		Stdin:          stdin,
		ExpectedOutput: expectedOutput,
		CPUTimeLimit:   DefaultCPUTimeLimit,
		MemoryLimit:    DefaultMemoryLimit,
	}
}

// Runner is the subset of the judge client consumed by the evaluation
// pipeline.
type Runner interface {
	Execute(ctx context.Context, sourceCode, language, stdin string) (Result, error)
	SubmitBatch(ctx context.Context, requests []BatchRequest) ([]string, error)
	PollBatch(ctx context.Context, tokens []string) ([]Result, error)
}
