// Package ai wraps the text-generation collaborator used for problem and
// test-case generation and for code review. The model is treated as an
// opaque generator of structured JSON or free text; its output is always
// schema-checked and falls back to deterministic defaults when unusable.
package ai

import "context"

// GeneratedProblem is the structured problem produced by the model.
type GeneratedProblem struct {
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Example       string              `json:"example"`
	Constraints   string              `json:"constraints"`
	Difficulty    string              `json:"difficulty"`
	CodeTemplates []GeneratedTemplate `json:"code_templates"`
	Tags          []string            `json:"tags"`
}

// GeneratedTemplate is a per-language starter template.
type GeneratedTemplate struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// GeneratedTestCase is one stdin/expected-output pair produced by the model.
type GeneratedTestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// TestCaseInput describes the problem the model should produce test cases
// for, including cases that already exist so the model avoids duplicates.
type TestCaseInput struct {
	Title       string
	Description string
	Example     string
	Constraints string
	Difficulty  string
	Existing    []GeneratedTestCase
	Count       int
}

// ReviewInput carries the artefacts reviewed for a code-review request.
type ReviewInput struct {
	ProblemDescription string
	Language           string
	Code               string
}

// Generator abstracts the model behind problem generation, test-case
// generation, solution generation, code review, and explanations.
type Generator interface {
	GenerateProblem(ctx context.Context, topic, difficulty string) (GeneratedProblem, error)
	GenerateTestCases(ctx context.Context, input TestCaseInput) ([]GeneratedTestCase, error)
	GenerateSolution(ctx context.Context, title, description, difficulty, language string) (string, error)
	Review(ctx context.Context, input ReviewInput) (string, error)
	Explain(ctx context.Context, topic string) (string, error)
}
