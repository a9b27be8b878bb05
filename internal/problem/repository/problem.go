package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"leetbot/internal/common/cache"
	"leetbot/internal/common/db"
)

const (
	defaultProblemTTL        = 30 * time.Minute
	defaultProblemEmptyTTL   = 5 * time.Minute
	problemFrontendKeyPrefix = "problem:frontend:"
)

var (
	ErrProblemNotFound = errors.New("problem not found")
)

// ProblemRepository persists problems and their topic tags, keyed by the
// stable frontend id.
type ProblemRepository interface {
	// GetByFrontendID returns the stored problem and its tags,
	// or ErrProblemNotFound.
	GetByFrontendID(ctx context.Context, frontendID int64) (Problem, []TopicTag, error)

	// Upsert inserts the problem or updates its mutable fields by frontend
	// id, replacing the tag set. Re-upserting never creates duplicates.
	Upsert(ctx context.Context, problem Problem, tagNames []string) (Problem, error)

	// Random returns a random stored problem matching the filters,
	// or ErrProblemNotFound when nothing matches. difficulty may be
	// DifficultyUnknown for any difficulty.
	Random(ctx context.Context, difficulty Difficulty, includePremium bool) (Problem, []TopicTag, error)

	// Count returns the number of stored problems.
	Count(ctx context.Context) (int64, error)
}

// problemWithTags bundles a problem with its tags for cache serialization.
type problemWithTags struct {
	Problem Problem    `json:"problem"`
	Tags    []TopicTag `json:"tags"`
}

// MySQLProblemRepository implements ProblemRepository on MySQL with a Redis
// read-through cache on frontend-id lookups.
type MySQLProblemRepository struct {
	db       db.Provider
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewProblemRepository(provider db.Provider, cacheClient cache.Cache) *MySQLProblemRepository {
	return NewProblemRepositoryWithTTL(provider, cacheClient, defaultProblemTTL, defaultProblemEmptyTTL)
}

func NewProblemRepositoryWithTTL(provider db.Provider, cacheClient cache.Cache, ttl, emptyTTL time.Duration) *MySQLProblemRepository {
	if ttl <= 0 {
		ttl = defaultProblemTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultProblemEmptyTTL
	}
	return &MySQLProblemRepository{
		db:       provider,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

func problemFrontendKey(frontendID int64) string {
	return problemFrontendKeyPrefix + strconv.FormatInt(frontendID, 10)
}

func (r *MySQLProblemRepository) GetByFrontendID(ctx context.Context, frontendID int64) (Problem, []TopicTag, error) {
	if r.cache != nil {
		bundle, err := cache.GetWithCached[problemWithTags](
			ctx,
			r.cache,
			problemFrontendKey(frontendID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(b problemWithTags) bool { return b.Problem.ID == 0 },
			marshalProblemWithTags,
			unmarshalProblemWithTags,
			func(ctx context.Context) (problemWithTags, error) {
				problem, tags, err := r.getByFrontendIDFromDB(ctx, frontendID)
				if err != nil {
					if errors.Is(err, ErrProblemNotFound) {
						return problemWithTags{}, nil
					}
					return problemWithTags{}, err
				}
				return problemWithTags{Problem: problem, Tags: tags}, nil
			},
		)
		if err != nil {
			return Problem{}, nil, err
		}
		if bundle.Problem.ID == 0 {
			return Problem{}, nil, ErrProblemNotFound
		}
		return bundle.Problem, bundle.Tags, nil
	}
	return r.getByFrontendIDFromDB(ctx, frontendID)
}

func (r *MySQLProblemRepository) getByFrontendIDFromDB(ctx context.Context, frontendID int64) (Problem, []TopicTag, error) {
	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return Problem{}, nil, err
	}

	query := `
		SELECT id, frontend_id, title, url, difficulty, description, premium
		FROM problems
		WHERE frontend_id = ?`
	problem, err := scanProblem(database.QueryRow(ctx, query, frontendID))
	if err != nil {
		if db.IsNoRows(err) {
			return Problem{}, nil, ErrProblemNotFound
		}
		return Problem{}, nil, err
	}

	tags, err := r.tagsForProblem(ctx, database, problem.ID)
	if err != nil {
		return Problem{}, nil, err
	}
	return problem, tags, nil
}

func (r *MySQLProblemRepository) Upsert(ctx context.Context, problem Problem, tagNames []string) (Problem, error) {
	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return Problem{}, err
	}

	err = db.InTransaction(ctx, database, func(tx db.Transaction) error {
		// Explicit insert-or-update by the unique frontend id; no dialect
		// conflict clause so the write stays portable.
		var existingID int64
		row := tx.QueryRow(ctx, "SELECT id FROM problems WHERE frontend_id = ?", problem.FrontendID)
		switch err := row.Scan(&existingID); {
		case err == nil:
			problem.ID = existingID
			if _, err2 := tx.Exec(ctx, `
				UPDATE problems
				SET title = ?, url = ?, difficulty = ?, description = ?, premium = ?
				WHERE id = ?`,
				problem.Title, problem.URL, int8(problem.Difficulty), problem.Description, problem.Premium, existingID); err2 != nil {
				return err2
			}
		case db.IsNoRows(err):
			result, err2 := tx.Exec(ctx, `
				INSERT INTO problems (frontend_id, title, url, difficulty, description, premium)
				VALUES (?, ?, ?, ?, ?, ?)`,
				problem.FrontendID, problem.Title, problem.URL, int8(problem.Difficulty), problem.Description, problem.Premium)
			if err2 != nil {
				return err2
			}
			id, err2 := result.LastInsertId()
			if err2 != nil {
				return err2
			}
			problem.ID = id
		default:
			return err
		}

		return r.replaceTags(ctx, tx, problem.ID, tagNames)
	})
	if err != nil {
		return Problem{}, err
	}

	if r.cache != nil {
		_ = r.cache.Del(ctx, problemFrontendKey(problem.FrontendID))
	}
	return problem, nil
}

// replaceTags rewrites the tag associations for a problem, creating tag rows
// on first reference.
func (r *MySQLProblemRepository) replaceTags(ctx context.Context, tx db.Transaction, problemID int64, tagNames []string) error {
	tagIDs := make([]int64, 0, len(tagNames))
	seen := make(map[string]bool, len(tagNames))
	for _, name := range tagNames {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		id, err := r.ensureTag(ctx, tx, name)
		if err != nil {
			return err
		}
		tagIDs = append(tagIDs, id)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM problem_topic_tags WHERE problem_id = ?", problemID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(ctx,
			"INSERT INTO problem_topic_tags (problem_id, tag_id) VALUES (?, ?)",
			problemID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func (r *MySQLProblemRepository) ensureTag(ctx context.Context, tx db.Transaction, name string) (int64, error) {
	var id int64
	row := tx.QueryRow(ctx, "SELECT id FROM topic_tags WHERE name = ?", name)
	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if !db.IsNoRows(err) {
		return 0, err
	}

	result, err := tx.Exec(ctx, "INSERT INTO topic_tags (name) VALUES (?)", name)
	if err != nil {
		// A concurrent refresh may have created the tag between the select
		// and the insert.
		if _, ok := db.UniqueViolation(err); ok {
			row := tx.QueryRow(ctx, "SELECT id FROM topic_tags WHERE name = ?", name)
			if err2 := row.Scan(&id); err2 == nil {
				return id, nil
			}
		}
		return 0, err
	}
	return result.LastInsertId()
}

func (r *MySQLProblemRepository) Random(ctx context.Context, difficulty Difficulty, includePremium bool) (Problem, []TopicTag, error) {
	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return Problem{}, nil, err
	}

	query := `
		SELECT id, frontend_id, title, url, difficulty, description, premium
		FROM problems`
	var conditions []string
	var args []interface{}
	if difficulty != DifficultyUnknown {
		conditions = append(conditions, "difficulty = ?")
		args = append(args, int8(difficulty))
	}
	if !includePremium {
		conditions = append(conditions, "premium = FALSE")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY RAND() LIMIT 1"

	problem, err := scanProblem(database.QueryRow(ctx, query, args...))
	if err != nil {
		if db.IsNoRows(err) {
			return Problem{}, nil, ErrProblemNotFound
		}
		return Problem{}, nil, err
	}

	tags, err := r.tagsForProblem(ctx, database, problem.ID)
	if err != nil {
		return Problem{}, nil, err
	}
	return problem, tags, nil
}

func (r *MySQLProblemRepository) Count(ctx context.Context) (int64, error) {
	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := database.QueryRow(ctx, "SELECT COUNT(*) FROM problems").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MySQLProblemRepository) tagsForProblem(ctx context.Context, database db.Database, problemID int64) ([]TopicTag, error) {
	query := `
		SELECT t.id, t.name
		FROM topic_tags t
		JOIN problem_topic_tags pt ON pt.tag_id = t.id
		WHERE pt.problem_id = ?
		ORDER BY t.name`
	rows, err := database.Query(ctx, query, problemID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tags []TopicTag
	for rows.Next() {
		var tag TopicTag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func scanProblem(row db.Row) (Problem, error) {
	var p Problem
	var difficulty int8
	if err := row.Scan(&p.ID, &p.FrontendID, &p.Title, &p.URL, &difficulty, &p.Description, &p.Premium); err != nil {
		return Problem{}, err
	}
	p.Difficulty = Difficulty(difficulty)
	return p, nil
}

func marshalProblemWithTags(b problemWithTags) string {
	data, err := json.Marshal(b)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalProblemWithTags(data string) (problemWithTags, error) {
	var b problemWithTags
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return problemWithTags{}, err
	}
	return b, nil
}
