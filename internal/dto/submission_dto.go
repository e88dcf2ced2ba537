package dto

import (
	"encoding/json"
	"time"

	"github.com/sd-tech/leetai-api/internal/models"
)

// SubmissionRequest represents the payload for creating a submission.
type SubmissionRequest struct {
	ProblemID uint   `json:"problem_id" validate:"required,gt=0"`
	UserID    uint   `json:"user_id" validate:"required,gt=0"`
	Language  string `json:"language" validate:"required"`
	Code      string `json:"code" validate:"required,min=1"`
}

// SubmissionFilter defines query parameters for listing submissions.
type SubmissionFilter struct {
	UserID    uint   `query:"user_id"`
	ProblemID uint   `query:"problem_id"`
	Status    string `query:"status"`
	Page      int    `query:"page"`
	PageSize  int    `query:"page_size"`
}

// ReviewRequest represents the payload for an AI code review.
type ReviewRequest struct {
	ProblemID uint   `json:"problem_id" validate:"required,gt=0"`
	Language  string `json:"language" validate:"required"`
	Code      string `json:"code" validate:"required,min=1"`
}

// TestCaseResult is the per-test-case outcome exposed to API consumers. The
// same shape is stored in the submission's results snapshot.
type TestCaseResult struct {
	TestCaseID   uint   `json:"test_case_id"`
	ActualOutput string `json:"actual_output"`
	Passed       bool   `json:"passed"`
	RuntimeMs    int64  `json:"runtime_ms"`
	Error        string `json:"error,omitempty"`
}

// SubmissionSummary is the listing shape for a submission, without code or
// per-test-case detail.
type SubmissionSummary struct {
	ID              uint      `json:"id"`
	ProblemID       uint      `json:"problem_id"`
	UserID          uint      `json:"user_id"`
	Language        string    `json:"language"`
	Status          string    `json:"status"`
	RuntimeMs       int64     `json:"runtime_ms"`
	TotalTestCases  int       `json:"total_test_cases"`
	PassedTestCases int       `json:"passed_test_cases"`
	CreatedAt       time.Time `json:"created_at"`
}

// SubmissionDetails extends the summary with code, feedback, and
// per-test-case results.
type SubmissionDetails struct {
	SubmissionSummary
	Code     string           `json:"code"`
	Feedback string           `json:"feedback"`
	Results  []TestCaseResult `json:"results"`
}

// SubmissionListResponse wraps submissions and pagination metadata.
type SubmissionListResponse struct {
	Items      []SubmissionSummary `json:"items"`
	Pagination Pagination          `json:"pagination"`
}

// NewSubmissionSummary builds a summary DTO from a model.
func NewSubmissionSummary(submission models.Submission) SubmissionSummary {
	return SubmissionSummary{
		ID:              submission.ID,
		ProblemID:       submission.ProblemID,
		UserID:          submission.UserID,
		Language:        submission.Language,
		Status:          submission.Status,
		RuntimeMs:       submission.RuntimeMs,
		TotalTestCases:  submission.TotalTestCases,
		PassedTestCases: submission.PassedTestCases,
		CreatedAt:       submission.CreatedAt,
	}
}

// NewSubmissionDetails builds a detail DTO from a model. Per-test-case
// results come from the loaded rows when present, otherwise from the
// denormalized snapshot.
func NewSubmissionDetails(submission models.Submission) SubmissionDetails {
	details := SubmissionDetails{
		SubmissionSummary: NewSubmissionSummary(submission),
		Code:              submission.Code,
		Feedback:          submission.Feedback,
	}

	if len(submission.Results) > 0 {
		results := make([]TestCaseResult, 0, len(submission.Results))
		for _, r := range submission.Results {
			results = append(results, TestCaseResult{
				TestCaseID:   r.TestCaseID,
				ActualOutput: r.ActualOutput,
				Passed:       r.Passed,
				RuntimeMs:    r.RuntimeMs,
				Error:        r.Error,
			})
		}
		details.Results = results
		return details
	}

	if len(submission.ResultsSnapshot) > 0 {
		var results []TestCaseResult
		if err := json.Unmarshal(submission.ResultsSnapshot, &results); err == nil {
			details.Results = results
		}
	}

	return details
}
