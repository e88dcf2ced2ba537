package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leetai",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of AI generation requests",
	}, []string{"model", "op"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leetai",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of AI generation failures",
	}, []string{"model", "op"})
)

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGenerator implements Generator against the OpenAI chat completion
// API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a generator from the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/sd-tech/leetai-api/pkg/ai"),
		logger: logger.With().Str("component", "ai_generator").Logger(),
	}, nil
}

// GenerateProblem asks the model for a structured problem on the given topic.
// Output that fails schema validation is replaced by a deterministic default
// problem, so the admin flow never breaks on a malformed completion.
func (g *OpenAIGenerator) GenerateProblem(ctx context.Context, topic, difficulty string) (GeneratedProblem, error) {
	content, err := g.complete(ctx, "generate_problem", problemSystemPrompt, problemUserPrompt(topic, difficulty), true)
	if err != nil {
		return GeneratedProblem{}, err
	}
	return ParseGeneratedProblem(content, difficulty, g.logger), nil
}

// GenerateTestCases asks the model for additional test cases. Malformed
// output falls back to deterministic defaults.
func (g *OpenAIGenerator) GenerateTestCases(ctx context.Context, input TestCaseInput) ([]GeneratedTestCase, error) {
	content, err := g.complete(ctx, "generate_test_cases", testCaseSystemPrompt, testCaseUserPrompt(input), false)
	if err != nil {
		return nil, err
	}
	return ParseGeneratedTestCases(content, input.Count, g.logger), nil
}

// GenerateSolution asks the model for a complete solution in the given
// language, returning the raw code.
func (g *OpenAIGenerator) GenerateSolution(ctx context.Context, title, description, difficulty, language string) (string, error) {
	prompt := fmt.Sprintf(
		"Write a complete, correct %s solution for the following problem. The program must read from stdin and write to stdout. Respond with code only, no explanation and no markdown fence.\n\nTitle: %s\nDifficulty: %s\n\n%s",
		language, title, difficulty, description,
	)
	content, err := g.complete(ctx, "generate_solution", "You are an expert competitive programmer.", prompt, false)
	if err != nil {
		return "", err
	}
	return stripCodeFence(content), nil
}

// Review produces a free-text review of the submitted code.
func (g *OpenAIGenerator) Review(ctx context.Context, input ReviewInput) (string, error) {
	prompt := fmt.Sprintf(
		"You are a code reviewer. Analyze the following code for the given problem and provide a detailed review.\n\nProblem: %s\n\nCode:\n```%s\n%s\n```\n\nPlease provide:\n1. A brief summary of what the code does\n2. Analysis of the approach and algorithm used\n3. Time and space complexity analysis\n4. Potential bugs or issues\n5. Suggestions for improvement\n6. Overall assessment of the code quality",
		input.ProblemDescription, input.Language, input.Code,
	)
	return g.complete(ctx, "review", "You are an experienced software engineer reviewing code.", prompt, false)
}

// Explain answers a free-form question about a programming topic.
func (g *OpenAIGenerator) Explain(ctx context.Context, topic string) (string, error) {
	return g.complete(ctx, "explain", "You are a patient programming tutor. Explain clearly and concisely.", topic, false)
}

func (g *OpenAIGenerator) complete(parent context.Context, op, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	ctx, span := g.tracer.Start(parent, "openai."+op, trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	if jsonMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(g.cfg.Model, op).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model, op).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai %s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(g.cfg.Model, op).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ParseGeneratedProblem extracts and validates a problem object from model
// text. Unusable output yields the deterministic default for the requested
// difficulty; the result always carries a template for every supported
// language.
func ParseGeneratedProblem(content, difficulty string, logger zerolog.Logger) GeneratedProblem {
	raw := extractJSONObject(content)
	if raw == "" {
		logger.Warn().Msg("model output contained no json object, using default problem")
		return DefaultProblem(difficulty)
	}
	if err := validateAgainst(problemSchema, raw); err != nil {
		logger.Warn().Err(err).Msg("generated problem failed schema validation, using default problem")
		return DefaultProblem(difficulty)
	}

	var problem GeneratedProblem
	if err := json.Unmarshal([]byte(raw), &problem); err != nil {
		logger.Warn().Err(err).Msg("generated problem failed to decode, using default problem")
		return DefaultProblem(difficulty)
	}

	problem.Difficulty = normalizeDifficulty(firstNonEmpty(problem.Difficulty, difficulty))
	for i := range problem.CodeTemplates {
		problem.CodeTemplates[i].Language = normalizeLanguage(problem.CodeTemplates[i].Language)
	}
	EnsureTemplates(&problem)
	return problem
}

// ParseGeneratedTestCases extracts and validates a test-case array from
// model text, falling back to deterministic defaults.
func ParseGeneratedTestCases(content string, count int, logger zerolog.Logger) []GeneratedTestCase {
	raw := extractJSONArray(content)
	if raw == "" {
		logger.Warn().Msg("model output contained no json array, using default test cases")
		return DefaultTestCases(count)
	}
	if err := validateAgainst(testCasesSchema, raw); err != nil {
		logger.Warn().Err(err).Msg("generated test cases failed schema validation, using defaults")
		return DefaultTestCases(count)
	}

	var cases []GeneratedTestCase
	if err := json.Unmarshal([]byte(raw), &cases); err != nil {
		logger.Warn().Err(err).Msg("generated test cases failed to decode, using defaults")
		return DefaultTestCases(count)
	}
	if count > 0 && len(cases) > count {
		cases = cases[:count]
	}
	return cases
}

const problemSystemPrompt = "You generate programming problems. Respond with a single JSON object containing title, description, example, constraints, difficulty, code_templates (array of {language, code} covering python, javascript, java, c++, c, go and typescript) and tags (array of strings). The problem must be solvable via stdin/stdout."

const testCaseSystemPrompt = "You generate test cases for programming problems. Respond with a JSON array of objects, each containing input (stdin text) and expected_output (exact stdout text). Outputs must be exactly what a correct solution prints."

func problemUserPrompt(topic, difficulty string) string {
	return fmt.Sprintf("Generate one %s difficulty problem about %s. Return JSON.", difficulty, topic)
}

func testCaseUserPrompt(input TestCaseInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d new test cases for the following problem.\n\n", input.Count)
	fmt.Fprintf(&b, "# %s (%s)\n\n%s\n", input.Title, input.Difficulty, input.Description)
	if input.Example != "" {
		fmt.Fprintf(&b, "\n## Example\n%s\n", input.Example)
	}
	if input.Constraints != "" {
		fmt.Fprintf(&b, "\n## Constraints\n%s\n", input.Constraints)
	}
	if len(input.Existing) > 0 {
		b.WriteString("\n## Existing test cases (do not repeat)\n")
		for _, tc := range input.Existing {
			fmt.Fprintf(&b, "- input: %q expected: %q\n", tc.Input, tc.ExpectedOutput)
		}
	}
	b.WriteString("\nReturn JSON.")
	return b.String()
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
