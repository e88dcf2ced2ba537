package models

import (
	"strings"
	"time"
)

// Difficulty levels recognised for problems.
const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

// KnownDifficulty reports whether the given difficulty is one of the
// recognised levels. Comparison is case-insensitive.
func KnownDifficulty(difficulty string) bool {
	switch strings.ToUpper(strings.TrimSpace(difficulty)) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Problem is a programming exercise with its test cases, per-language starter
// templates, and tags.
type Problem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Difficulty  string `gorm:"size:32;not null" json:"difficulty"`
	Example     string `gorm:"type:text" json:"example"`
	Constraints string `gorm:"type:text" json:"constraints"`
	Explanation string `gorm:"type:text" json:"explanation"`

	// Solution is the canonical solution used to validate admin-supplied
	// test cases against the judge.
	Solution string `gorm:"type:text" json:"solution,omitempty"`

	// ReferenceSolution and ReferenceLanguage validate AI-generated test
	// cases before they are shown to users.
	ReferenceSolution  string `gorm:"type:text" json:"reference_solution,omitempty"`
	ReferenceLanguage  string `gorm:"size:32" json:"reference_language,omitempty"`
	TestCasesValidated bool   `gorm:"default:false" json:"test_cases_validated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TestCases     []TestCase     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_cases,omitempty"`
	CodeTemplates []CodeTemplate `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"code_templates,omitempty"`
	Tags          []Tag          `gorm:"many2many:problem_tags" json:"tags,omitempty"`
}

// VisibleTestCases returns the test cases a regular user may see.
func (p Problem) VisibleTestCases() []TestCase {
	visible := make([]TestCase, 0, len(p.TestCases))
	for _, tc := range p.TestCases {
		if !tc.Hidden {
			visible = append(visible, tc)
		}
	}
	return visible
}

// TestCase is a single stdin/expected-output pair for a problem. Expected
// output is compared after trimming surrounding whitespace.
type TestCase struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ProblemID      uint      `gorm:"not null;index" json:"problem_id"`
	Input          string    `gorm:"type:text;not null" json:"input"`
	ExpectedOutput string    `gorm:"type:text;not null" json:"expected_output"`
	Hidden         bool      `gorm:"default:false" json:"hidden"`
	CreatedAt      time.Time `json:"created_at"`
}

// CodeTemplate is the starter code shown to users for one language.
type CodeTemplate struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProblemID uint   `gorm:"not null;index" json:"problem_id"`
	Language  string `gorm:"size:32;not null" json:"language"`
	Code      string `gorm:"type:text;not null" json:"code"`
}

// Tag labels problems by topic.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}
