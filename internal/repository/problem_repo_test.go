package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sd-tech/leetai-api/internal/models"
)

func TestProblemRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProblemRepository(db)

	arrays := models.Tag{Name: "arrays"}
	graphs := models.Tag{Name: "graphs"}
	require.NoError(t, db.Create(&arrays).Error)
	require.NoError(t, db.Create(&graphs).Error)

	older := models.Problem{
		Title:      "Two Sum",
		Difficulty: models.DifficultyEasy,
		Tags:       []models.Tag{arrays},
		CreatedAt:  time.Now().Add(-2 * time.Hour),
	}
	newer := models.Problem{
		Title:      "Shortest Path",
		Difficulty: models.DifficultyHard,
		Tags:       []models.Tag{graphs},
		CreatedAt:  time.Now().Add(-1 * time.Hour),
	}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&newer).Error)

	problems, total, err := repo.List(context.Background(), ProblemQuery{Difficulty: "easy", Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, problems, 1)
	require.Equal(t, "Two Sum", problems[0].Title)

	problems, total, err = repo.List(context.Background(), ProblemQuery{Tags: []string{"Graphs"}, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Shortest Path", problems[0].Title)

	problems, total, err = repo.List(context.Background(), ProblemQuery{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "Shortest Path", problems[0].Title, "expected newest record first")
}

func TestProblemRepositoryGetWithTestCasesOrdersByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProblemRepository(db)

	problem := models.Problem{
		Title:      "Echo",
		Difficulty: models.DifficultyEasy,
		TestCases: []models.TestCase{
			{Input: "a", ExpectedOutput: "a"},
			{Input: "b", ExpectedOutput: "b", Hidden: true},
		},
	}
	require.NoError(t, db.Create(&problem).Error)

	got, err := repo.GetWithTestCases(context.Background(), problem.ID)
	require.NoError(t, err)
	require.Len(t, got.TestCases, 2)
	require.Equal(t, "a", got.TestCases[0].Input)
	require.Len(t, got.VisibleTestCases(), 1)
}

func TestProblemRepositoryReplaceTestCases(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProblemRepository(db)

	problem := models.Problem{
		Title:      "Echo",
		Difficulty: models.DifficultyEasy,
		TestCases:  []models.TestCase{{Input: "old", ExpectedOutput: "old"}},
	}
	require.NoError(t, db.Create(&problem).Error)

	replacement := []models.TestCase{
		{Input: "1", ExpectedOutput: "1"},
		{Input: "2", ExpectedOutput: "2", Hidden: true},
	}
	require.NoError(t, repo.ReplaceTestCases(context.Background(), problem.ID, replacement, true))

	got, err := repo.GetWithTestCases(context.Background(), problem.ID)
	require.NoError(t, err)
	require.Len(t, got.TestCases, 2)
	require.Equal(t, "1", got.TestCases[0].Input)
	require.True(t, got.TestCasesValidated)
}

func TestProblemRepositoryFindOrCreateTagsDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProblemRepository(db)

	tags, err := repo.FindOrCreateTags(context.Background(), []string{"Arrays", "arrays", " math ", ""})
	require.NoError(t, err)
	require.Len(t, tags, 2)

	again, err := repo.FindOrCreateTags(context.Background(), []string{"ARRAYS"})
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.Equal(t, tags[0].ID, again[0].ID)
}
