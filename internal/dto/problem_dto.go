package dto

import "github.com/sd-tech/leetai-api/internal/models"

// Pagination describes pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
}

// ProblemFilter defines query parameters for listing problems.
type ProblemFilter struct {
	Difficulty string   `query:"difficulty"`
	Tags       []string `query:"tags"`
	Search     string   `query:"search"`
	Page       int      `query:"page"`
	PageSize   int      `query:"page_size"`
}

// ProblemRequest represents the payload for creating or updating a problem.
type ProblemRequest struct {
	Title             string                `json:"title" validate:"required,min=1,max=255"`
	Description       string                `json:"description" validate:"required"`
	Difficulty        string                `json:"difficulty" validate:"required"`
	Example           string                `json:"example"`
	Constraints       string                `json:"constraints"`
	Explanation       string                `json:"explanation"`
	Solution          string                `json:"solution"`
	ReferenceSolution string                `json:"reference_solution"`
	ReferenceLanguage string                `json:"reference_language"`
	CodeTemplates     []CodeTemplateRequest `json:"code_templates" validate:"dive"`
	Tags              []string              `json:"tags"`
}

// CodeTemplateRequest is one per-language starter template in a problem payload.
type CodeTemplateRequest struct {
	Language string `json:"language" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

// TestCaseRequest is one stdin/expected-output pair in a save-test-cases payload.
type TestCaseRequest struct {
	Input          string `json:"input" validate:"required"`
	ExpectedOutput string `json:"expected_output" validate:"required"`
	Hidden         bool   `json:"hidden"`
}

// SaveTestCasesRequest replaces the full test-case set of a problem.
type SaveTestCasesRequest struct {
	TestCases []TestCaseRequest `json:"test_cases" validate:"required,min=1,dive"`
}

// GenerateProblemRequest asks the AI to draft a problem.
type GenerateProblemRequest struct {
	Topic      string `json:"topic" validate:"required,min=1"`
	Difficulty string `json:"difficulty" validate:"required"`
}

// GenerateTestCasesRequest asks the AI to draft additional test cases.
type GenerateTestCasesRequest struct {
	Count int `json:"count" validate:"gte=0,lte=20"`
}

// GenerateSolutionRequest asks the AI generator for a worked solution to an
// arbitrary problem statement.
type GenerateSolutionRequest struct {
	Title       string `json:"title" validate:"required,min=1"`
	Description string `json:"description" validate:"required"`
	Difficulty  string `json:"difficulty" validate:"required"`
	Language    string `json:"language" validate:"required"`
}

// ExplainRequest asks the AI generator to explain a programming topic.
type ExplainRequest struct {
	Topic string `json:"topic" validate:"required,min=1"`
}

// ProblemSummary is the listing shape for a problem.
type ProblemSummary struct {
	ID         uint     `json:"id"`
	Title      string   `json:"title"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
}

// ProblemDetails is the full problem shape returned to users. Hidden test
// cases are never included.
type ProblemDetails struct {
	ProblemSummary
	Description   string                 `json:"description"`
	Example       string                 `json:"example"`
	Constraints   string                 `json:"constraints"`
	Explanation   string                 `json:"explanation,omitempty"`
	CodeTemplates []CodeTemplateResponse `json:"code_templates"`
	TestCases     []TestCaseResponse     `json:"test_cases"`
	Validated     bool                   `json:"test_cases_validated"`
}

// CodeTemplateResponse is one starter template in a problem response.
type CodeTemplateResponse struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// TestCaseResponse is one visible test case in a problem response.
type TestCaseResponse struct {
	ID             uint   `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// ProblemListResponse wraps problems and pagination metadata.
type ProblemListResponse struct {
	Items      []ProblemSummary `json:"items"`
	Pagination Pagination       `json:"pagination"`
}

// TagResponse is one tag in a tag listing.
type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// NewProblemSummary builds a summary DTO from a model.
func NewProblemSummary(problem models.Problem) ProblemSummary {
	tags := make([]string, 0, len(problem.Tags))
	for _, tag := range problem.Tags {
		tags = append(tags, tag.Name)
	}
	return ProblemSummary{
		ID:         problem.ID,
		Title:      problem.Title,
		Difficulty: problem.Difficulty,
		Tags:       tags,
	}
}

// NewProblemDetails builds a detail DTO from a model, exposing only visible
// test cases.
func NewProblemDetails(problem models.Problem) ProblemDetails {
	templates := make([]CodeTemplateResponse, 0, len(problem.CodeTemplates))
	for _, tpl := range problem.CodeTemplates {
		templates = append(templates, CodeTemplateResponse{Language: tpl.Language, Code: tpl.Code})
	}

	visible := problem.VisibleTestCases()
	cases := make([]TestCaseResponse, 0, len(visible))
	for _, tc := range visible {
		cases = append(cases, TestCaseResponse{ID: tc.ID, Input: tc.Input, ExpectedOutput: tc.ExpectedOutput})
	}

	return ProblemDetails{
		ProblemSummary: NewProblemSummary(problem),
		Description:    problem.Description,
		Example:        problem.Example,
		Constraints:    problem.Constraints,
		Explanation:    problem.Explanation,
		CodeTemplates:  templates,
		TestCases:      cases,
		Validated:      problem.TestCasesValidated,
	}
}
