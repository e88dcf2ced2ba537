package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sd-tech/leetai-api/internal/dto"
	"github.com/sd-tech/leetai-api/internal/models"
	"github.com/sd-tech/leetai-api/internal/repository"
	"github.com/sd-tech/leetai-api/pkg/ai"
	"github.com/sd-tech/leetai-api/pkg/judge"
)

// ErrProblemNotFound indicates the problem cannot be located.
var ErrProblemNotFound = errors.New("problem not found")

// ErrInvalidDifficulty indicates an unrecognized difficulty level.
var ErrInvalidDifficulty = errors.New("difficulty must be one of EASY, MEDIUM, HARD")

// ErrGeneratorUnavailable indicates the AI generator is not configured.
var ErrGeneratorUnavailable = errors.New("generator unavailable")

// validationBudget caps the judge calls spent validating a single
// save-test-cases request, so an admin bulk update cannot drain the shared
// rate-limit window.
const validationBudget = 3

// ProblemService exposes problem administration and read operations.
type ProblemService interface {
	List(ctx context.Context, filter dto.ProblemFilter) (dto.ProblemListResponse, error)
	Get(ctx context.Context, id uint) (dto.ProblemDetails, error)
	Create(ctx context.Context, payload dto.ProblemRequest) (dto.ProblemDetails, error)
	Update(ctx context.Context, id uint, payload dto.ProblemRequest) (dto.ProblemDetails, error)
	Delete(ctx context.Context, id uint) error
	ListTags(ctx context.Context) ([]dto.TagResponse, error)
	SaveTestCases(ctx context.Context, problemID uint, payload dto.SaveTestCasesRequest) (dto.ProblemDetails, error)
	GenerateProblem(ctx context.Context, payload dto.GenerateProblemRequest) (dto.ProblemDetails, error)
	GenerateTestCases(ctx context.Context, problemID uint, payload dto.GenerateTestCasesRequest) (dto.ProblemDetails, error)
	GenerateSolution(ctx context.Context, payload dto.GenerateSolutionRequest) (string, error)
	Explain(ctx context.Context, payload dto.ExplainRequest) (string, error)
}

type problemService struct {
	problems  repository.ProblemRepository
	runner    judge.Runner
	generator ai.Generator
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewProblemService constructs the problem service. cache may be nil when
// Redis is not configured; generator may be nil when AI is not configured.
func NewProblemService(problemRepo repository.ProblemRepository, runner judge.Runner, generator ai.Generator, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) ProblemService {
	return &problemService{
		problems:  problemRepo,
		runner:    runner,
		generator: generator,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "problem_service").Logger(),
	}
}

func (s *problemService) List(ctx context.Context, filter dto.ProblemFilter) (dto.ProblemListResponse, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	cacheKey := fmt.Sprintf("problems:list:%s:%s:%s:%d:%d",
		strings.ToLower(filter.Difficulty), strings.ToLower(strings.Join(filter.Tags, ",")), strings.ToLower(filter.Search), page, pageSize)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ProblemListResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("key", cacheKey).Msg("problem list cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read problem list cache")
		}
	}

	problems, total, err := s.problems.List(ctx, repository.ProblemQuery{
		Difficulty: filter.Difficulty,
		Tags:       filter.Tags,
		Search:     filter.Search,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	})
	if err != nil {
		return dto.ProblemListResponse{}, err
	}

	items := make([]dto.ProblemSummary, 0, len(problems))
	for _, problem := range problems {
		items = append(items, dto.NewProblemSummary(problem))
	}

	response := dto.ProblemListResponse{
		Items: items,
		Pagination: dto.Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: int(total),
		},
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store problem list cache")
			}
		}
	}

	return response, nil
}

func (s *problemService) Get(ctx context.Context, id uint) (dto.ProblemDetails, error) {
	problem, err := s.problems.GetWithTestCases(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemDetails{}, ErrProblemNotFound
		}
		return dto.ProblemDetails{}, err
	}

	return dto.NewProblemDetails(problem), nil
}

func (s *problemService) Create(ctx context.Context, payload dto.ProblemRequest) (dto.ProblemDetails, error) {
	problem, err := s.buildProblem(ctx, payload)
	if err != nil {
		return dto.ProblemDetails{}, err
	}

	if err := s.problems.Create(ctx, &problem); err != nil {
		return dto.ProblemDetails{}, err
	}

	s.invalidateListCache(ctx)
	return dto.NewProblemDetails(problem), nil
}

func (s *problemService) Update(ctx context.Context, id uint, payload dto.ProblemRequest) (dto.ProblemDetails, error) {
	existing, err := s.problems.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemDetails{}, ErrProblemNotFound
		}
		return dto.ProblemDetails{}, err
	}

	problem, err := s.buildProblem(ctx, payload)
	if err != nil {
		return dto.ProblemDetails{}, err
	}

	problem.ID = existing.ID
	problem.CreatedAt = existing.CreatedAt
	problem.TestCasesValidated = existing.TestCasesValidated

	if err := s.problems.Update(ctx, &problem); err != nil {
		return dto.ProblemDetails{}, err
	}

	s.invalidateListCache(ctx)
	return dto.NewProblemDetails(problem), nil
}

func (s *problemService) Delete(ctx context.Context, id uint) error {
	if _, err := s.problems.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProblemNotFound
		}
		return err
	}

	if err := s.problems.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateListCache(ctx)
	return nil
}

func (s *problemService) ListTags(ctx context.Context) ([]dto.TagResponse, error) {
	tags, err := s.problems.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TagResponse, 0, len(tags))
	for _, tag := range tags {
		responses = append(responses, dto.TagResponse{ID: tag.ID, Name: tag.Name})
	}
	return responses, nil
}

// SaveTestCases replaces the problem's test cases. When the problem carries a
// canonical solution, the first few cases are checked against the judge and
// cases whose expected output disagrees with the solution's actual output are
// hidden from users. Judge rate-limit exhaustion stops validation but never
// blocks the save.
func (s *problemService) SaveTestCases(ctx context.Context, problemID uint, payload dto.SaveTestCasesRequest) (dto.ProblemDetails, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProblemDetails{}, err
	}

	problem, err := s.problems.GetWithTestCases(ctx, problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemDetails{}, ErrProblemNotFound
		}
		return dto.ProblemDetails{}, err
	}

	cases := make([]models.TestCase, 0, len(payload.TestCases))
	for _, tc := range payload.TestCases {
		cases = append(cases, models.TestCase{
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			Hidden:         tc.Hidden,
		})
	}

	validated := s.validateTestCases(ctx, problem, cases)

	if err := s.problems.ReplaceTestCases(ctx, problemID, cases, validated); err != nil {
		return dto.ProblemDetails{}, err
	}

	return s.Get(ctx, problemID)
}

// validateTestCases runs the canonical solution against up to
// validationBudget cases and hides the ones whose output disagrees. Reports
// whether every checked case agreed.
func (s *problemService) validateTestCases(ctx context.Context, problem models.Problem, cases []models.TestCase) bool {
	solution := strings.TrimSpace(problem.Solution)
	language := problem.ReferenceLanguage
	if solution == "" {
		solution = strings.TrimSpace(problem.ReferenceSolution)
	}
	if solution == "" || s.runner == nil {
		return false
	}

	validated := true
	for i := range cases {
		if i >= validationBudget {
			break
		}

		result, err := s.runner.Execute(ctx, solution, language, cases[i].Input)
		if err != nil {
			var rateErr *judge.RateLimitError
			if errors.As(err, &rateErr) {
				s.logger.Warn().Err(err).Uint("problem_id", problem.ID).Msg("rate limited during test case validation, saving remaining cases unchecked")
				return false
			}
			s.logger.Warn().Err(err).Uint("problem_id", problem.ID).Int("case", i).Msg("test case validation run failed, hiding case")
			cases[i].Hidden = true
			validated = false
			continue
		}

		if result.Output() != strings.TrimSpace(cases[i].ExpectedOutput) {
			s.logger.Warn().
				Uint("problem_id", problem.ID).
				Int("case", i).
				Msg("canonical solution disagrees with expected output, hiding case")
			cases[i].Hidden = true
			validated = false
		}
	}

	return validated
}

// GenerateProblem drafts a problem with the AI generator and persists it.
func (s *problemService) GenerateProblem(ctx context.Context, payload dto.GenerateProblemRequest) (dto.ProblemDetails, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProblemDetails{}, err
	}
	if s.generator == nil {
		return dto.ProblemDetails{}, ErrGeneratorUnavailable
	}
	if !models.KnownDifficulty(payload.Difficulty) {
		return dto.ProblemDetails{}, ErrInvalidDifficulty
	}

	generated, err := s.generator.GenerateProblem(ctx, payload.Topic, strings.ToUpper(payload.Difficulty))
	if err != nil {
		return dto.ProblemDetails{}, err
	}

	templates := make([]models.CodeTemplate, 0, len(generated.CodeTemplates))
	for _, tpl := range generated.CodeTemplates {
		templates = append(templates, models.CodeTemplate{Language: tpl.Language, Code: tpl.Code})
	}

	tags, err := s.problems.FindOrCreateTags(ctx, generated.Tags)
	if err != nil {
		return dto.ProblemDetails{}, err
	}

	problem := models.Problem{
		Title:         strings.TrimSpace(s.sanitizer.Sanitize(generated.Title)),
		Description:   s.sanitizer.Sanitize(generated.Description),
		Difficulty:    strings.ToUpper(generated.Difficulty),
		Example:       s.sanitizer.Sanitize(generated.Example),
		Constraints:   s.sanitizer.Sanitize(generated.Constraints),
		CodeTemplates: templates,
		Tags:          tags,
	}

	// The generator does not return a worked solution, so draft one for
	// later test-case validation. Failure here only costs validation.
	solution, err := s.generator.GenerateSolution(ctx, problem.Title, problem.Description, problem.Difficulty, "python")
	if err != nil {
		s.logger.Warn().Err(err).Str("title", problem.Title).Msg("failed to generate reference solution")
	} else {
		problem.ReferenceSolution = solution
		problem.ReferenceLanguage = "python"
	}

	if err := s.problems.Create(ctx, &problem); err != nil {
		return dto.ProblemDetails{}, err
	}

	s.invalidateListCache(ctx)
	return dto.NewProblemDetails(problem), nil
}

// GenerateSolution drafts a solution for an arbitrary problem statement
// without persisting anything.
func (s *problemService) GenerateSolution(ctx context.Context, payload dto.GenerateSolutionRequest) (string, error) {
	if err := s.validator.Struct(payload); err != nil {
		return "", err
	}
	if s.generator == nil {
		return "", ErrGeneratorUnavailable
	}
	if !models.KnownDifficulty(payload.Difficulty) {
		return "", ErrInvalidDifficulty
	}
	return s.generator.GenerateSolution(ctx, payload.Title, payload.Description, strings.ToUpper(payload.Difficulty), payload.Language)
}

// Explain produces a free-text explanation of a programming topic.
func (s *problemService) Explain(ctx context.Context, payload dto.ExplainRequest) (string, error) {
	if err := s.validator.Struct(payload); err != nil {
		return "", err
	}
	if s.generator == nil {
		return "", ErrGeneratorUnavailable
	}
	return s.generator.Explain(ctx, payload.Topic)
}

// GenerateTestCases drafts additional test cases with the AI generator,
// validates them against the reference solution when one exists, and appends
// them to the problem hidden-by-default beyond the visible prefix.
func (s *problemService) GenerateTestCases(ctx context.Context, problemID uint, payload dto.GenerateTestCasesRequest) (dto.ProblemDetails, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProblemDetails{}, err
	}
	if s.generator == nil {
		return dto.ProblemDetails{}, ErrGeneratorUnavailable
	}

	problem, err := s.problems.GetWithTestCases(ctx, problemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemDetails{}, ErrProblemNotFound
		}
		return dto.ProblemDetails{}, err
	}

	count := payload.Count
	if count == 0 {
		count = 3
	}

	existing := make([]ai.GeneratedTestCase, 0, len(problem.TestCases))
	for _, tc := range problem.TestCases {
		existing = append(existing, ai.GeneratedTestCase{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput})
	}

	generated, err := s.generator.GenerateTestCases(ctx, ai.TestCaseInput{
		Title:       problem.Title,
		Description: problem.Description,
		Example:     problem.Example,
		Constraints: problem.Constraints,
		Difficulty:  problem.Difficulty,
		Existing:    existing,
		Count:       count,
	})
	if err != nil {
		return dto.ProblemDetails{}, err
	}

	cases := problem.TestCases
	for _, gc := range generated {
		cases = append(cases, models.TestCase{
			Input:          gc.Input,
			ExpectedOutput: gc.ExpectedOutput,
			Hidden:         true,
		})
	}

	validated := s.validateTestCases(ctx, problem, cases[len(problem.TestCases):])

	if err := s.problems.ReplaceTestCases(ctx, problemID, cases, problem.TestCasesValidated && validated); err != nil {
		return dto.ProblemDetails{}, err
	}

	return s.Get(ctx, problemID)
}

func (s *problemService) buildProblem(ctx context.Context, payload dto.ProblemRequest) (models.Problem, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Problem{}, err
	}
	if !models.KnownDifficulty(payload.Difficulty) {
		return models.Problem{}, ErrInvalidDifficulty
	}

	templates := make([]models.CodeTemplate, 0, len(payload.CodeTemplates))
	for _, tpl := range payload.CodeTemplates {
		templates = append(templates, models.CodeTemplate{
			Language: strings.ToLower(strings.TrimSpace(tpl.Language)),
			Code:     tpl.Code,
		})
	}

	tags, err := s.problems.FindOrCreateTags(ctx, payload.Tags)
	if err != nil {
		return models.Problem{}, err
	}

	return models.Problem{
		Title:             strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description:       s.sanitizer.Sanitize(payload.Description),
		Difficulty:        strings.ToUpper(strings.TrimSpace(payload.Difficulty)),
		Example:           s.sanitizer.Sanitize(payload.Example),
		Constraints:       s.sanitizer.Sanitize(payload.Constraints),
		Explanation:       s.sanitizer.Sanitize(payload.Explanation),
		Solution:          payload.Solution,
		ReferenceSolution: payload.ReferenceSolution,
		ReferenceLanguage: strings.ToLower(strings.TrimSpace(payload.ReferenceLanguage)),
		CodeTemplates:     templates,
		Tags:              tags,
	}, nil
}

// invalidateListCache drops cached problem list pages after a mutation. Keys
// are swept by prefix; failures only cost cache freshness.
func (s *problemService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}

	iter := s.cache.Scan(ctx, 0, "problems:list:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate problem list cache entry")
			return
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to scan problem list cache")
	}
}
