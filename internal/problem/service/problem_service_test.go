package service

import (
	"context"
	"errors"
	"testing"

	"leetbot/internal/leetcode"
	"leetbot/internal/problem/repository"
	"leetbot/internal/testutil"
	pkgerrors "leetbot/pkg/errors"
)

type fakeProblemRepo struct {
	problems map[int64]repository.Problem
	tags     map[int64][]string

	upsertCalls int
	upsertErr   error
	nextID      int64
}

func newFakeProblemRepo() *fakeProblemRepo {
	return &fakeProblemRepo{
		problems: make(map[int64]repository.Problem),
		tags:     make(map[int64][]string),
	}
}

func (f *fakeProblemRepo) GetByFrontendID(ctx context.Context, frontendID int64) (repository.Problem, []repository.TopicTag, error) {
	problem, ok := f.problems[frontendID]
	if !ok {
		return repository.Problem{}, nil, repository.ErrProblemNotFound
	}
	tags := make([]repository.TopicTag, 0, len(f.tags[frontendID]))
	for i, name := range f.tags[frontendID] {
		tags = append(tags, repository.TopicTag{ID: int64(i + 1), Name: name})
	}
	return problem, tags, nil
}

func (f *fakeProblemRepo) Upsert(ctx context.Context, problem repository.Problem, tagNames []string) (repository.Problem, error) {
	f.upsertCalls++
	if f.upsertErr != nil {
		return repository.Problem{}, f.upsertErr
	}
	if existing, ok := f.problems[problem.FrontendID]; ok {
		problem.ID = existing.ID
	} else {
		f.nextID++
		problem.ID = f.nextID
	}
	f.problems[problem.FrontendID] = problem
	f.tags[problem.FrontendID] = tagNames
	return problem, nil
}

func (f *fakeProblemRepo) Random(ctx context.Context, difficulty repository.Difficulty, includePremium bool) (repository.Problem, []repository.TopicTag, error) {
	for _, problem := range f.problems {
		if difficulty != repository.DifficultyUnknown && problem.Difficulty != difficulty {
			continue
		}
		if problem.Premium && !includePremium {
			continue
		}
		return f.GetByFrontendID(ctx, problem.FrontendID)
	}
	return repository.Problem{}, nil, repository.ErrProblemNotFound
}

func (f *fakeProblemRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.problems)), nil
}

type fakeCatalog struct {
	daily    leetcode.ProblemDetail
	byID     map[int64]leetcode.ProblemDetail
	random   leetcode.ProblemDetail
	all      []leetcode.ProblemDetail
	stats    map[string]leetcode.UserStats
	healthy  bool
	apiCalls int
	err      error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		byID:    make(map[int64]leetcode.ProblemDetail),
		stats:   make(map[string]leetcode.UserStats),
		healthy: true,
	}
}

func (f *fakeCatalog) FetchDaily(ctx context.Context) (leetcode.ProblemDetail, error) {
	f.apiCalls++
	if f.err != nil {
		return leetcode.ProblemDetail{}, f.err
	}
	return f.daily, nil
}

func (f *fakeCatalog) FetchByID(ctx context.Context, frontendID int64) (leetcode.ProblemDetail, error) {
	f.apiCalls++
	if f.err != nil {
		return leetcode.ProblemDetail{}, f.err
	}
	detail, ok := f.byID[frontendID]
	if !ok {
		return leetcode.ProblemDetail{}, leetcode.ErrNotFound
	}
	return detail, nil
}

func (f *fakeCatalog) FetchRandom(ctx context.Context, difficulty string, includePremium bool) (leetcode.ProblemDetail, error) {
	f.apiCalls++
	if f.err != nil {
		return leetcode.ProblemDetail{}, f.err
	}
	if f.random.FrontendID == 0 {
		return leetcode.ProblemDetail{}, leetcode.ErrNotFound
	}
	return f.random, nil
}

func (f *fakeCatalog) FetchAll(ctx context.Context) ([]leetcode.ProblemDetail, error) {
	f.apiCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.all, nil
}

func (f *fakeCatalog) FetchUserStats(ctx context.Context, username string) (leetcode.UserStats, error) {
	f.apiCalls++
	if f.err != nil {
		return leetcode.UserStats{}, f.err
	}
	stats, ok := f.stats[username]
	if !ok {
		return leetcode.UserStats{}, leetcode.ErrNotFound
	}
	return stats, nil
}

func (f *fakeCatalog) Health(ctx context.Context) (string, error) {
	f.apiCalls++
	if !f.healthy {
		return "", errors.New("connection refused")
	}
	return "ok", nil
}

func twoSumDetail() leetcode.ProblemDetail {
	return leetcode.ProblemDetail{
		FrontendID:  1,
		Title:       "Two Sum",
		URL:         "https://leetcode.com/problems/two-sum/",
		Difficulty:  "Easy",
		Description: "Given an array of integers...",
		Tags:        []string{"Array", "Hash Table"},
	}
}

func TestByFrontendIDStoredHitSkipsAPI(t *testing.T) {
	repo := newFakeProblemRepo()
	catalog := newFakeCatalog()
	svc := NewProblemService(repo, catalog)

	detail := twoSumDetail()
	_, err := repo.Upsert(context.Background(), repository.Problem{
		FrontendID: detail.FrontendID,
		Title:      detail.Title,
		URL:        detail.URL,
		Difficulty: repository.DifficultyEasy,
	}, detail.Tags)
	testutil.AssertNil(t, err)

	problem, tags, err := svc.ByFrontendID(context.Background(), 1)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, problem.Title, "Two Sum")
	testutil.AssertEqual(t, len(tags), 2)
	testutil.AssertEqual(t, catalog.apiCalls, 0)
}

func TestByFrontendIDMissFetchesAndPersists(t *testing.T) {
	repo := newFakeProblemRepo()
	catalog := newFakeCatalog()
	catalog.byID[1] = twoSumDetail()
	svc := NewProblemService(repo, catalog)

	problem, tags, err := svc.ByFrontendID(context.Background(), 1)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, problem.FrontendID, int64(1))
	testutil.AssertEqual(t, problem.Difficulty, repository.DifficultyEasy)
	testutil.AssertEqual(t, len(tags), 2)
	testutil.AssertEqual(t, repo.upsertCalls, 1)

	// Second lookup is served from the store.
	_, _, err = svc.ByFrontendID(context.Background(), 1)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, catalog.apiCalls, 1)
}

func TestByFrontendIDUnknownProblem(t *testing.T) {
	svc := NewProblemService(newFakeProblemRepo(), newFakeCatalog())

	_, _, err := svc.ByFrontendID(context.Background(), 99999)
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.ProblemNotFound)
}

func TestByFrontendIDRejectsNonPositive(t *testing.T) {
	svc := NewProblemService(newFakeProblemRepo(), newFakeCatalog())

	_, _, err := svc.ByFrontendID(context.Background(), 0)
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.InvalidParams)
}

func TestDailyPersistsOnFirstSight(t *testing.T) {
	repo := newFakeProblemRepo()
	catalog := newFakeCatalog()
	catalog.daily = twoSumDetail()
	svc := NewProblemService(repo, catalog)

	problem, _, err := svc.Daily(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, problem.Title, "Two Sum")
	testutil.AssertEqual(t, repo.upsertCalls, 1)

	// A second invocation finds the stored row and does not re-upsert.
	_, _, err = svc.Daily(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, repo.upsertCalls, 1)
}

func TestDailyUpstreamDown(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.err = errors.New("connection refused")
	svc := NewProblemService(newFakeProblemRepo(), catalog)

	_, _, err := svc.Daily(context.Background())
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.UpstreamUnavailable)
}

func TestRandomPrefersStore(t *testing.T) {
	repo := newFakeProblemRepo()
	catalog := newFakeCatalog()
	svc := NewProblemService(repo, catalog)

	_, err := repo.Upsert(context.Background(), repository.Problem{
		FrontendID: 42,
		Title:      "Trapping Rain Water",
		Difficulty: repository.DifficultyHard,
	}, nil)
	testutil.AssertNil(t, err)

	problem, _, err := svc.Random(context.Background(), repository.DifficultyHard, false)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, problem.FrontendID, int64(42))
	testutil.AssertEqual(t, catalog.apiCalls, 0)
}

func TestRandomNoMatch(t *testing.T) {
	svc := NewProblemService(newFakeProblemRepo(), newFakeCatalog())

	_, _, err := svc.Random(context.Background(), repository.DifficultyHard, false)
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.NoMatchingProblem)
}

func TestRefreshAllIsIdempotent(t *testing.T) {
	repo := newFakeProblemRepo()
	catalog := newFakeCatalog()
	catalog.all = []leetcode.ProblemDetail{
		twoSumDetail(),
		{FrontendID: 2, Title: "Add Two Numbers", Difficulty: "Medium"},
	}
	svc := NewProblemService(repo, catalog)

	stored, err := svc.RefreshAll(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, stored, 2)

	stored, err = svc.RefreshAll(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, stored, 2)

	count, err := repo.Count(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, count, int64(2))
}

func TestRefreshAllAllWritesFailing(t *testing.T) {
	repo := newFakeProblemRepo()
	repo.upsertErr = errors.New("disk full")
	catalog := newFakeCatalog()
	catalog.all = []leetcode.ProblemDetail{twoSumDetail()}
	svc := NewProblemService(repo, catalog)

	_, err := svc.RefreshAll(context.Background())
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.RefreshFailed)
}

func TestUserStats(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.stats["alice"] = leetcode.UserStats{
		Username: "alice",
		AcCounts: []leetcode.SubmissionCount{{Difficulty: "All", Count: 120}},
	}
	svc := NewProblemService(newFakeProblemRepo(), catalog)

	stats, err := svc.UserStats(context.Background(), "alice")
	testutil.AssertNil(t, err)
	all, ok := stats.AcceptedAll()
	testutil.AssertTrue(t, ok, "All bucket should be present")
	testutil.AssertEqual(t, all.Count, 120)

	_, err = svc.UserStats(context.Background(), "nobody")
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.UserStatsNotFound)
}

func TestCheckAPI(t *testing.T) {
	catalog := newFakeCatalog()
	svc := NewProblemService(newFakeProblemRepo(), catalog)

	status, err := svc.CheckAPI(context.Background())
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, status, "ok")

	catalog.healthy = false
	_, err = svc.CheckAPI(context.Background())
	testutil.AssertEqual(t, pkgerrors.GetCode(err), pkgerrors.UpstreamUnavailable)
}
