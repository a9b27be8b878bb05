package service

import (
	"context"
	"errors"

	"leetbot/internal/leetcode"
	"leetbot/internal/problem/repository"
	pkgerrors "leetbot/pkg/errors"
	"leetbot/pkg/utils/logger"

	"go.uber.org/zap"
)

// CatalogClient is the external problem-catalog boundary.
type CatalogClient interface {
	FetchDaily(ctx context.Context) (leetcode.ProblemDetail, error)
	FetchByID(ctx context.Context, frontendID int64) (leetcode.ProblemDetail, error)
	FetchRandom(ctx context.Context, difficulty string, includePremium bool) (leetcode.ProblemDetail, error)
	FetchAll(ctx context.Context) ([]leetcode.ProblemDetail, error)
	FetchUserStats(ctx context.Context, username string) (leetcode.UserStats, error)
	Health(ctx context.Context) (string, error)
}

// ProblemService resolves problem queries through the store, falling back to
// the catalog API on a miss and persisting what it fetched.
type ProblemService struct {
	repo repository.ProblemRepository
	api  CatalogClient
}

// NewProblemService creates a new ProblemService.
func NewProblemService(repo repository.ProblemRepository, api CatalogClient) *ProblemService {
	return &ProblemService{repo: repo, api: api}
}

// Daily returns today's problem, persisting it on first sight.
func (s *ProblemService) Daily(ctx context.Context) (repository.Problem, []repository.TopicTag, error) {
	detail, err := s.api.FetchDaily(ctx)
	if err != nil {
		return repository.Problem{}, nil, pkgerrors.Wrap(err, pkgerrors.UpstreamUnavailable)
	}

	problem, tags, err := s.repo.GetByFrontendID(ctx, detail.FrontendID)
	if err == nil {
		return problem, tags, nil
	}
	if !errors.Is(err, repository.ErrProblemNotFound) {
		return repository.Problem{}, nil, pkgerrors.Wrap(err, pkgerrors.DatabaseError)
	}
	return s.persistDetail(ctx, detail)
}

// ByFrontendID returns the problem with the given frontend id, consulting the
// store first and the catalog API on a miss.
func (s *ProblemService) ByFrontendID(ctx context.Context, frontendID int64) (repository.Problem, []repository.TopicTag, error) {
	if frontendID <= 0 {
		return repository.Problem{}, nil, pkgerrors.New(pkgerrors.InvalidParams)
	}

	problem, tags, err := s.repo.GetByFrontendID(ctx, frontendID)
	if err == nil {
		return problem, tags, nil
	}
	if !errors.Is(err, repository.ErrProblemNotFound) {
		return repository.Problem{}, nil, pkgerrors.Wrap(err, pkgerrors.DatabaseError)
	}

	detail, err := s.api.FetchByID(ctx, frontendID)
	if err != nil {
		if errors.Is(err, leetcode.ErrNotFound) {
			return repository.Problem{}, nil, pkgerrors.Newf(pkgerrors.ProblemNotFound, "problem %d not found", frontendID)
		}
		return repository.Problem{}, nil, pkgerrors.Wrap(err, pkgerrors.UpstreamUnavailable)
	}
	return s.persistDetail(ctx, detail)
}

// Random returns a random problem matching the filters. The store is tried
// first; an empty store falls back to the catalog API.
func (s *ProblemService) Random(ctx context.Context, difficulty repository.Difficulty, includePremium bool) (repository.Problem, []repository.TopicTag, error) {
	problem, tags, err := s.repo.Random(ctx, difficulty, includePremium)
	if err == nil {
		return problem, tags, nil
	}
	if !errors.Is(err, repository.ErrProblemNotFound) {
		return repository.Problem{}, nil, pkgerrors.Wrap(err, pkgerrors.DatabaseError)
	}

	label := ""
	if difficulty != repository.DifficultyUnknown {
		label = difficulty.String()
	}
	detail, err := s.api.FetchRandom(ctx, label, includePremium)
	if err != nil {
		if errors.Is(err, leetcode.ErrNotFound) {
			return repository.Problem{}, nil, pkgerrors.New(pkgerrors.NoMatchingProblem)
		}
		return repository.Problem{}, nil, pkgerrors.Wrap(err, pkgerrors.UpstreamUnavailable)
	}
	return s.persistDetail(ctx, detail)
}

// RefreshAll resynchronizes the store with the full catalog. It is
// idempotent; concurrent runs converge because writes are upserts keyed by
// frontend id. Returns the number of problems stored.
func (s *ProblemService) RefreshAll(ctx context.Context) (int, error) {
	details, err := s.api.FetchAll(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.UpstreamUnavailable)
	}

	stored := 0
	for _, detail := range details {
		if _, err := s.repo.Upsert(ctx, detailToProblem(detail), detail.Tags); err != nil {
			logger.Warn(ctx, "upsert problem during refresh failed",
				zap.Int64("frontend_id", detail.FrontendID), zap.Error(err))
			continue
		}
		stored++
	}
	if stored == 0 && len(details) > 0 {
		return 0, pkgerrors.New(pkgerrors.RefreshFailed)
	}
	logger.Info(ctx, "problem cache refreshed",
		zap.Int("fetched", len(details)), zap.Int("stored", stored))
	return stored, nil
}

// UserStats returns a user's public statistics from the catalog API.
func (s *ProblemService) UserStats(ctx context.Context, username string) (leetcode.UserStats, error) {
	if username == "" {
		return leetcode.UserStats{}, pkgerrors.New(pkgerrors.InvalidParams)
	}
	stats, err := s.api.FetchUserStats(ctx, username)
	if err != nil {
		if errors.Is(err, leetcode.ErrNotFound) {
			return leetcode.UserStats{}, pkgerrors.Newf(pkgerrors.UserStatsNotFound, "user %q not found", username)
		}
		return leetcode.UserStats{}, pkgerrors.Wrap(err, pkgerrors.UpstreamUnavailable)
	}
	return stats, nil
}

// CheckAPI reports the catalog API health status.
func (s *ProblemService) CheckAPI(ctx context.Context) (string, error) {
	status, err := s.api.Health(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.UpstreamUnavailable)
	}
	return status, nil
}

// StoredCount returns the number of problems in the store.
func (s *ProblemService) StoredCount(ctx context.Context) (int64, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.DatabaseError)
	}
	return count, nil
}

func (s *ProblemService) persistDetail(ctx context.Context, detail leetcode.ProblemDetail) (repository.Problem, []repository.TopicTag, error) {
	if _, err := s.repo.Upsert(ctx, detailToProblem(detail), detail.Tags); err != nil {
		return repository.Problem{}, nil, pkgerrors.Wrap(err, pkgerrors.ProblemUpsertFailed)
	}
	problem, tags, err := s.repo.GetByFrontendID(ctx, detail.FrontendID)
	if err != nil {
		return repository.Problem{}, nil, pkgerrors.Wrap(err, pkgerrors.DatabaseError)
	}
	return problem, tags, nil
}

func detailToProblem(detail leetcode.ProblemDetail) repository.Problem {
	return repository.Problem{
		FrontendID:  detail.FrontendID,
		Title:       detail.Title,
		URL:         detail.URL,
		Difficulty:  repository.ParseDifficulty(detail.Difficulty),
		Description: detail.Description,
		Premium:     detail.Premium,
	}
}
