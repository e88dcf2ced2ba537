package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission statuses. A submission starts PENDING and receives exactly one
// terminal status from the evaluation pipeline.
const (
	SubmissionStatusPending = "PENDING"
	SubmissionStatusPassed  = "PASSED"
	SubmissionStatusFailed  = "FAILED"
	SubmissionStatusError   = "ERROR"
)

// Submission is one user attempt at a problem, together with its verdict once
// evaluation has finished.
type Submission struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProblemID uint   `gorm:"not null;index" json:"problem_id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	Code      string `gorm:"type:text;not null" json:"code"`
	Language  string `gorm:"size:32;not null" json:"language"`
	Status    string `gorm:"size:16;not null" json:"status"`

	RuntimeMs       int64  `gorm:"default:0" json:"runtime_ms"`
	TotalTestCases  int    `gorm:"default:0" json:"total_test_cases"`
	PassedTestCases int    `gorm:"default:0" json:"passed_test_cases"`
	Feedback        string `gorm:"type:text" json:"feedback"`

	// ResultsSnapshot is a denormalized copy of the per-test-case results,
	// written in the same transaction as the Results rows so readers can
	// reconstruct full detail without loading the association. The rows
	// remain authoritative at write time.
	ResultsSnapshot datatypes.JSON `json:"results_snapshot,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Problem Problem                    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	User    User                       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Results []SubmissionTestCaseResult `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"results,omitempty"`
}

// IsTerminal reports whether the submission has reached a final status.
func (s Submission) IsTerminal() bool {
	switch s.Status {
	case SubmissionStatusPassed, SubmissionStatusFailed, SubmissionStatusError:
		return true
	default:
		return false
	}
}

// SubmissionTestCaseResult is the outcome of running a submission against one
// test case. Rows are created in bulk by the evaluation pipeline and never
// updated afterwards.
type SubmissionTestCaseResult struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SubmissionID uint   `gorm:"not null;index" json:"submission_id"`
	TestCaseID   uint   `gorm:"index" json:"test_case_id"`
	ActualOutput string `gorm:"type:text" json:"actual_output"`
	Passed       bool   `gorm:"not null" json:"passed"`
	RuntimeMs    int64  `gorm:"default:0" json:"runtime_ms"`
	Error        string `gorm:"type:text" json:"error,omitempty"`
}
