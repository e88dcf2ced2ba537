package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sd-tech/leetai-api/internal/dto"
	"github.com/sd-tech/leetai-api/internal/models"
	"github.com/sd-tech/leetai-api/internal/repository"
	"github.com/sd-tech/leetai-api/pkg/ai"
	"github.com/sd-tech/leetai-api/pkg/judge"
)

func newProblemService(t *testing.T, db *gorm.DB, runner judge.Runner, generator ai.Generator, cache *redis.Client) ProblemService {
	t.Helper()
	return NewProblemService(
		repository.NewProblemRepository(db),
		runner,
		generator,
		cache,
		0,
		validator.New(),
		zerolog.Nop(),
	)
}

func testCache(t *testing.T) *redis.Client {
	t.Helper()
	server := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: server.Addr()})
}

func TestProblemCreateSanitizesAndValidatesDifficulty(t *testing.T) {
	db := setupServiceDB(t)
	svc := newProblemService(t, db, &stubRunner{}, nil, nil)

	created, err := svc.Create(context.Background(), dto.ProblemRequest{
		Title:       "Echo <script>alert(1)</script>",
		Description: "Print the input.",
		Difficulty:  "easy",
		Tags:        []string{"Strings"},
	})
	require.NoError(t, err)
	require.Equal(t, "Echo", created.Title)
	require.Equal(t, "EASY", created.Difficulty)
	require.Equal(t, []string{"strings"}, created.Tags)

	_, err = svc.Create(context.Background(), dto.ProblemRequest{
		Title:       "Bad",
		Description: "x",
		Difficulty:  "IMPOSSIBLE",
	})
	require.ErrorIs(t, err, ErrInvalidDifficulty)
}

func TestProblemListUsesCache(t *testing.T) {
	db := setupServiceDB(t)
	cache := testCache(t)
	svc := newProblemService(t, db, &stubRunner{}, nil, cache)

	_, err := svc.Create(context.Background(), dto.ProblemRequest{
		Title: "Echo", Description: "x", Difficulty: "EASY",
	})
	require.NoError(t, err)

	first, err := svc.List(context.Background(), dto.ProblemFilter{})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	// A direct DB write bypasses invalidation; the cached page is served.
	require.NoError(t, db.Create(&models.Problem{Title: "Stale", Difficulty: models.DifficultyEasy}).Error)
	second, err := svc.List(context.Background(), dto.ProblemFilter{})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)

	// Mutating through the service invalidates the cached pages.
	_, err = svc.Create(context.Background(), dto.ProblemRequest{
		Title: "Fresh", Description: "x", Difficulty: "EASY",
	})
	require.NoError(t, err)
	third, err := svc.List(context.Background(), dto.ProblemFilter{})
	require.NoError(t, err)
	require.Len(t, third.Items, 3)
}

func TestSaveTestCasesHidesDisagreeingCases(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{executeResult: accepted("expected", "0.010")}
	svc := newProblemService(t, db, runner, nil, nil)

	problem := models.Problem{
		Title:      "Echo",
		Difficulty: models.DifficultyEasy,
		Solution:   "print('expected')",
	}
	require.NoError(t, db.Create(&problem).Error)

	details, err := svc.SaveTestCases(context.Background(), problem.ID, dto.SaveTestCasesRequest{
		TestCases: []dto.TestCaseRequest{
			{Input: "a", ExpectedOutput: "expected"},
			{Input: "b", ExpectedOutput: "wrong"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, runner.executeCalls)

	// The disagreeing case was hidden, so only one is user-visible.
	require.Len(t, details.TestCases, 1)
	require.Equal(t, "a", details.TestCases[0].Input)
	require.False(t, details.Validated)
}

func TestSaveTestCasesLimitsJudgeCalls(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{executeResult: accepted("ok", "0.010")}
	svc := newProblemService(t, db, runner, nil, nil)

	problem := models.Problem{
		Title:      "Echo",
		Difficulty: models.DifficultyEasy,
		Solution:   "print('ok')",
	}
	require.NoError(t, db.Create(&problem).Error)

	cases := make([]dto.TestCaseRequest, 5)
	for i := range cases {
		cases[i] = dto.TestCaseRequest{Input: "a", ExpectedOutput: "ok"}
	}

	details, err := svc.SaveTestCases(context.Background(), problem.ID, dto.SaveTestCasesRequest{TestCases: cases})
	require.NoError(t, err)
	require.Equal(t, 3, runner.executeCalls, "validation must stop at the judge-call budget")
	require.Len(t, details.TestCases, 5)
}

func TestSaveTestCasesSurvivesRateLimit(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{executeErr: &judge.RateLimitError{RetryAfter: 30}}
	svc := newProblemService(t, db, runner, nil, nil)

	problem := models.Problem{
		Title:      "Echo",
		Difficulty: models.DifficultyEasy,
		Solution:   "print('ok')",
	}
	require.NoError(t, db.Create(&problem).Error)

	details, err := svc.SaveTestCases(context.Background(), problem.ID, dto.SaveTestCasesRequest{
		TestCases: []dto.TestCaseRequest{{Input: "a", ExpectedOutput: "ok"}},
	})
	require.NoError(t, err, "rate limiting must not block the save")
	require.Equal(t, 1, runner.executeCalls)
	require.Len(t, details.TestCases, 1)
	require.False(t, details.Validated)
}

func TestSaveTestCasesWithoutSolutionSkipsValidation(t *testing.T) {
	db := setupServiceDB(t)
	runner := &stubRunner{}
	svc := newProblemService(t, db, runner, nil, nil)

	problem := models.Problem{Title: "Echo", Difficulty: models.DifficultyEasy}
	require.NoError(t, db.Create(&problem).Error)

	_, err := svc.SaveTestCases(context.Background(), problem.ID, dto.SaveTestCasesRequest{
		TestCases: []dto.TestCaseRequest{{Input: "a", ExpectedOutput: "a"}},
	})
	require.NoError(t, err)
	require.Zero(t, runner.executeCalls)
}

type problemGenerator struct {
	stubGenerator
	problem  ai.GeneratedProblem
	cases    []ai.GeneratedTestCase
	solution string
}

func (g *problemGenerator) GenerateProblem(ctx context.Context, topic, difficulty string) (ai.GeneratedProblem, error) {
	return g.problem, nil
}

func (g *problemGenerator) GenerateTestCases(ctx context.Context, input ai.TestCaseInput) ([]ai.GeneratedTestCase, error) {
	return g.cases, nil
}

func (g *problemGenerator) GenerateSolution(ctx context.Context, title, description, difficulty, language string) (string, error) {
	if g.solution == "" {
		return "", errors.New("no solution configured")
	}
	return g.solution, nil
}

func (g *problemGenerator) Explain(ctx context.Context, topic string) (string, error) {
	return "about " + topic, nil
}

func TestGenerateProblemPersistsDraft(t *testing.T) {
	db := setupServiceDB(t)
	generator := &problemGenerator{problem: ai.GeneratedProblem{
		Title:       "Sum It",
		Description: "Sum the numbers.",
		Difficulty:  "EASY",
		CodeTemplates: []ai.GeneratedTemplate{
			{Language: "python", Code: "pass"},
		},
		Tags: []string{"math"},
	}}
	svc := newProblemService(t, db, &stubRunner{}, generator, nil)

	details, err := svc.GenerateProblem(context.Background(), dto.GenerateProblemRequest{
		Topic:      "arrays",
		Difficulty: "EASY",
	})
	require.NoError(t, err)
	require.Equal(t, "Sum It", details.Title)
	require.Equal(t, []string{"math"}, details.Tags)
	require.NotZero(t, details.ID)
}

func TestGenerateProblemBackfillsReferenceSolution(t *testing.T) {
	db := setupServiceDB(t)
	generator := &problemGenerator{
		problem: ai.GeneratedProblem{
			Title:       "Sum It",
			Description: "Sum the numbers.",
			Difficulty:  "EASY",
		},
		solution: "print(sum(map(int, input().split())))",
	}
	svc := newProblemService(t, db, &stubRunner{}, generator, nil)

	details, err := svc.GenerateProblem(context.Background(), dto.GenerateProblemRequest{
		Topic:      "arrays",
		Difficulty: "EASY",
	})
	require.NoError(t, err)

	var stored models.Problem
	require.NoError(t, db.First(&stored, details.ID).Error)
	require.Equal(t, generator.solution, stored.ReferenceSolution)
	require.Equal(t, "python", stored.ReferenceLanguage)
}

func TestGenerateSolution(t *testing.T) {
	db := setupServiceDB(t)
	generator := &problemGenerator{solution: "print(input())"}
	svc := newProblemService(t, db, &stubRunner{}, generator, nil)

	solution, err := svc.GenerateSolution(context.Background(), dto.GenerateSolutionRequest{
		Title:       "Echo",
		Description: "Print the input.",
		Difficulty:  "easy",
		Language:    "python",
	})
	require.NoError(t, err)
	require.Equal(t, "print(input())", solution)

	_, err = svc.GenerateSolution(context.Background(), dto.GenerateSolutionRequest{
		Title:       "Echo",
		Description: "Print the input.",
		Difficulty:  "impossible",
		Language:    "python",
	})
	require.ErrorIs(t, err, ErrInvalidDifficulty)
}

func TestExplainTopic(t *testing.T) {
	db := setupServiceDB(t)
	svc := newProblemService(t, db, &stubRunner{}, &problemGenerator{}, nil)

	explanation, err := svc.Explain(context.Background(), dto.ExplainRequest{Topic: "recursion"})
	require.NoError(t, err)
	require.Equal(t, "about recursion", explanation)

	svc = newProblemService(t, db, &stubRunner{}, nil, nil)
	_, err = svc.Explain(context.Background(), dto.ExplainRequest{Topic: "recursion"})
	require.ErrorIs(t, err, ErrGeneratorUnavailable)
}

func TestGenerateTestCasesAppendsHidden(t *testing.T) {
	db := setupServiceDB(t)
	generator := &problemGenerator{cases: []ai.GeneratedTestCase{
		{Input: "9", ExpectedOutput: "9"},
	}}
	svc := newProblemService(t, db, &stubRunner{}, generator, nil)

	problem := models.Problem{
		Title:      "Echo",
		Difficulty: models.DifficultyEasy,
		TestCases:  []models.TestCase{{Input: "a", ExpectedOutput: "a"}},
	}
	require.NoError(t, db.Create(&problem).Error)

	details, err := svc.GenerateTestCases(context.Background(), problem.ID, dto.GenerateTestCasesRequest{Count: 1})
	require.NoError(t, err)

	// Generated cases are hidden, only the original stays visible.
	require.Len(t, details.TestCases, 1)

	got, err := repository.NewProblemRepository(db).GetWithTestCases(context.Background(), problem.ID)
	require.NoError(t, err)
	require.Len(t, got.TestCases, 2)
	require.True(t, got.TestCases[1].Hidden)
}

func TestGenerateProblemWithoutGenerator(t *testing.T) {
	db := setupServiceDB(t)
	svc := newProblemService(t, db, &stubRunner{}, nil, nil)

	_, err := svc.GenerateProblem(context.Background(), dto.GenerateProblemRequest{Topic: "x", Difficulty: "EASY"})
	require.ErrorIs(t, err, ErrGeneratorUnavailable)
}
