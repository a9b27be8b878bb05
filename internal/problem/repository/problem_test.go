package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"leetbot/internal/common/cache"
	"leetbot/internal/common/db"
	"leetbot/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-sql-driver/mysql"
)

// fakeProblemDB is an in-memory stand-in for the MySQL schema, routing the
// repository's statements against plain maps.
type fakeProblemDB struct {
	mu       sync.Mutex
	problems map[int64]*problemRow
	tagIDs   map[string]int64
	tagNames map[int64]string
	joins    map[int64][]int64

	nextProblemID int64
	nextTagID     int64

	problemSelects int  // full problem rows served from storage
	tagInsertRace  bool // next tag insert loses to a concurrent writer
}

type problemRow struct {
	id          int64
	frontendID  int64
	title       string
	url         string
	difficulty  int8
	description string
	premium     bool
}

func newFakeProblemDB() *fakeProblemDB {
	return &fakeProblemDB{
		problems: make(map[int64]*problemRow),
		tagIDs:   make(map[string]int64),
		tagNames: make(map[int64]string),
		joins:    make(map[int64][]int64),
	}
}

func (f *fakeProblemDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.Contains(query, "SELECT id FROM problems WHERE frontend_id"):
		for _, p := range f.sortedProblems() {
			if p.frontendID == args[0].(int64) {
				return fakeRow{vals: []interface{}{p.id}}
			}
		}
		return fakeRow{err: sql.ErrNoRows}

	case strings.Contains(query, "SELECT id FROM topic_tags WHERE name"):
		if id, ok := f.tagIDs[args[0].(string)]; ok {
			return fakeRow{vals: []interface{}{id}}
		}
		return fakeRow{err: sql.ErrNoRows}

	case strings.Contains(query, "COUNT(*)"):
		return fakeRow{vals: []interface{}{int64(len(f.problems))}}

	case strings.Contains(query, "ORDER BY RAND()"):
		wantDifficulty := int8(-1)
		if strings.Contains(query, "difficulty = ?") {
			wantDifficulty = args[0].(int8)
		}
		skipPremium := strings.Contains(query, "premium = FALSE")
		for _, p := range f.sortedProblems() {
			if wantDifficulty >= 0 && p.difficulty != wantDifficulty {
				continue
			}
			if skipPremium && p.premium {
				continue
			}
			return fakeRow{vals: problemVals(p)}
		}
		return fakeRow{err: sql.ErrNoRows}

	case strings.Contains(query, "WHERE frontend_id"):
		f.problemSelects++
		for _, p := range f.sortedProblems() {
			if p.frontendID == args[0].(int64) {
				return fakeRow{vals: problemVals(p)}
			}
		}
		return fakeRow{err: sql.ErrNoRows}
	}
	return fakeRow{err: fmt.Errorf("unexpected query: %s", query)}
}

func (f *fakeProblemDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.Contains(query, "INSERT INTO problems"):
		f.nextProblemID++
		p := &problemRow{
			id:          f.nextProblemID,
			frontendID:  args[0].(int64),
			title:       args[1].(string),
			url:         args[2].(string),
			difficulty:  args[3].(int8),
			description: args[4].(string),
			premium:     args[5].(bool),
		}
		f.problems[p.id] = p
		return fakeResult{lastID: p.id, affected: 1}, nil

	case strings.Contains(query, "UPDATE problems"):
		p, ok := f.problems[args[5].(int64)]
		if !ok {
			return fakeResult{}, nil
		}
		p.title = args[0].(string)
		p.url = args[1].(string)
		p.difficulty = args[2].(int8)
		p.description = args[3].(string)
		p.premium = args[4].(bool)
		return fakeResult{affected: 1}, nil

	case strings.Contains(query, "DELETE FROM problem_topic_tags"):
		delete(f.joins, args[0].(int64))
		return fakeResult{affected: 1}, nil

	case strings.Contains(query, "INSERT INTO problem_topic_tags"):
		problemID, tagID := args[0].(int64), args[1].(int64)
		f.joins[problemID] = append(f.joins[problemID], tagID)
		return fakeResult{affected: 1}, nil

	case strings.Contains(query, "INSERT INTO topic_tags"):
		name := args[0].(string)
		if f.tagInsertRace {
			// Another refresh created the tag between the select and
			// this insert.
			f.tagInsertRace = false
			f.createTagLocked(name)
			return nil, duplicateEntry(name, "uk_name")
		}
		if _, ok := f.tagIDs[name]; ok {
			return nil, duplicateEntry(name, "uk_name")
		}
		id := f.createTagLocked(name)
		return fakeResult{lastID: id, affected: 1}, nil
	}
	return nil, fmt.Errorf("unexpected exec: %s", query)
}

func (f *fakeProblemDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if strings.Contains(query, "FROM topic_tags t") {
		problemID := args[0].(int64)
		type tag struct {
			id   int64
			name string
		}
		var tags []tag
		for _, tagID := range f.joins[problemID] {
			tags = append(tags, tag{id: tagID, name: f.tagNames[tagID]})
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i].name < tags[j].name })
		rows := &fakeRows{}
		for _, t := range tags {
			rows.rows = append(rows.rows, []interface{}{t.id, t.name})
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
}

func (f *fakeProblemDB) Begin(ctx context.Context) (db.Transaction, error) {
	return &fakeProblemTx{db: f}, nil
}

func (f *fakeProblemDB) Ping(ctx context.Context) error { return nil }
func (f *fakeProblemDB) Close() error                   { return nil }
func (f *fakeProblemDB) Stats() db.Stats                { return db.Stats{} }

func (f *fakeProblemDB) createTagLocked(name string) int64 {
	f.nextTagID++
	f.tagIDs[name] = f.nextTagID
	f.tagNames[f.nextTagID] = name
	return f.nextTagID
}

func (f *fakeProblemDB) sortedProblems() []*problemRow {
	out := make([]*problemRow, 0, len(f.problems))
	for _, p := range f.problems {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

type fakeProblemTx struct {
	db *fakeProblemDB
}

func (t *fakeProblemTx) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return t.db.Query(ctx, query, args...)
}

func (t *fakeProblemTx) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	return t.db.QueryRow(ctx, query, args...)
}

func (t *fakeProblemTx) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	return t.db.Exec(ctx, query, args...)
}

func (t *fakeProblemTx) Commit() error   { return nil }
func (t *fakeProblemTx) Rollback() error { return nil }

type fakeRow struct {
	vals []interface{}
	err  error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	return scanValues(r.vals, dest)
}

type fakeRows struct {
	rows [][]interface{}
	idx  int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	return scanValues(r.rows[r.idx-1], dest)
}

func (r *fakeRows) Close() error { return nil }
func (r *fakeRows) Err() error   { return nil }

type fakeResult struct {
	lastID   int64
	affected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

func scanValues(vals []interface{}, dest []interface{}) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(vals), len(dest))
	}
	for i, v := range vals {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *int8:
			*d = v.(int8)
		case *string:
			*d = v.(string)
		case *bool:
			*d = v.(bool)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

func problemVals(p *problemRow) []interface{} {
	return []interface{}{p.id, p.frontendID, p.title, p.url, p.difficulty, p.description, p.premium}
}

func duplicateEntry(value, key string) error {
	return &mysql.MySQLError{
		Number:  1062,
		Message: fmt.Sprintf("Duplicate entry '%s' for key '%s'", value, key),
	}
}

func TestUpsertTwiceKeepsSingleRecord(t *testing.T) {
	fdb := newFakeProblemDB()
	repo := NewProblemRepository(db.NewStaticProvider(fdb), nil)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, Problem{
		FrontendID:  1,
		Title:       "Two Sum",
		URL:         "https://leetcode.com/problems/two-sum/",
		Difficulty:  DifficultyEasy,
		Description: "first write",
	}, []string{"Array", "Hash Table"})
	testutil.AssertNil(t, err)
	testutil.AssertTrue(t, first.ID != 0, "insert assigns a storage id")

	second, err := repo.Upsert(ctx, Problem{
		FrontendID:  1,
		Title:       "Two Sum",
		URL:         "https://leetcode.com/problems/two-sum/",
		Difficulty:  DifficultyMedium,
		Description: "second write",
	}, []string{"Array"})
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, second.ID, first.ID)
	testutil.AssertEqual(t, len(fdb.problems), 1)

	got, tags, err := repo.GetByFrontendID(ctx, 1)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, got.Description, "second write")
	testutil.AssertEqual(t, got.Difficulty, DifficultyMedium)
	testutil.AssertEqual(t, len(tags), 1)
	testutil.AssertEqual(t, tags[0].Name, "Array")
}

func TestUpsertReusesTagRows(t *testing.T) {
	fdb := newFakeProblemDB()
	repo := NewProblemRepository(db.NewStaticProvider(fdb), nil)
	ctx := context.Background()

	// Duplicates and blanks inside one call collapse to a single row.
	one, err := repo.Upsert(ctx, Problem{FrontendID: 1, Title: "Two Sum", Difficulty: DifficultyEasy},
		[]string{"Array", "Array", "  "})
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, len(fdb.tagIDs), 1)
	testutil.AssertEqual(t, len(fdb.joins[one.ID]), 1)

	// A second problem naming the same tag shares the existing row.
	two, err := repo.Upsert(ctx, Problem{FrontendID: 2, Title: "Add Two Numbers", Difficulty: DifficultyMedium},
		[]string{"Array", "Math"})
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, len(fdb.tagIDs), 2)
	testutil.AssertEqual(t, fdb.joins[two.ID][0], fdb.joins[one.ID][0])
}

func TestUpsertSurvivesConcurrentTagInsert(t *testing.T) {
	fdb := newFakeProblemDB()
	repo := NewProblemRepository(db.NewStaticProvider(fdb), nil)
	ctx := context.Background()

	fdb.tagInsertRace = true
	stored, err := repo.Upsert(ctx, Problem{FrontendID: 3, Title: "Longest Substring", Difficulty: DifficultyMedium},
		[]string{"Sliding Window"})
	testutil.AssertNil(t, err)

	_, tags, err := repo.GetByFrontendID(ctx, 3)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, len(tags), 1)
	testutil.AssertEqual(t, tags[0].Name, "Sliding Window")
	testutil.AssertEqual(t, len(fdb.joins[stored.ID]), 1)
}

func TestGetByFrontendIDCachesAndUpsertInvalidates(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)
	redisCache, err := cache.NewRedisCache(server.Addr())
	if err != nil {
		t.Fatalf("connect redis cache: %v", err)
	}
	t.Cleanup(func() { _ = redisCache.Close() })

	fdb := newFakeProblemDB()
	repo := NewProblemRepository(db.NewStaticProvider(fdb), redisCache)
	ctx := context.Background()

	_, err = repo.Upsert(ctx, Problem{FrontendID: 1, Title: "Two Sum", Difficulty: DifficultyEasy}, []string{"Array"})
	testutil.AssertNil(t, err)

	_, _, err = repo.GetByFrontendID(ctx, 1)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, fdb.problemSelects, 1)

	// Second read is served from the cache.
	_, _, err = repo.GetByFrontendID(ctx, 1)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, fdb.problemSelects, 1)

	// Upsert drops the cached entry, so the next read sees the new fields.
	_, err = repo.Upsert(ctx, Problem{FrontendID: 1, Title: "Two Sum", Difficulty: DifficultyEasy, Description: "updated"}, []string{"Array"})
	testutil.AssertNil(t, err)

	got, _, err := repo.GetByFrontendID(ctx, 1)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, got.Description, "updated")
	testutil.AssertEqual(t, fdb.problemSelects, 2)
}

func TestGetByFrontendIDCachesMisses(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)
	redisCache, err := cache.NewRedisCache(server.Addr())
	if err != nil {
		t.Fatalf("connect redis cache: %v", err)
	}
	t.Cleanup(func() { _ = redisCache.Close() })

	fdb := newFakeProblemDB()
	repo := NewProblemRepository(db.NewStaticProvider(fdb), redisCache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := repo.GetByFrontendID(ctx, 404)
		if !errors.Is(err, ErrProblemNotFound) {
			t.Fatalf("read %d: err = %v, want ErrProblemNotFound", i, err)
		}
	}
	// The null sentinel absorbs the repeat lookups.
	testutil.AssertEqual(t, fdb.problemSelects, 1)
}

func TestRandomHonorsFilters(t *testing.T) {
	fdb := newFakeProblemDB()
	repo := NewProblemRepository(db.NewStaticProvider(fdb), nil)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, Problem{FrontendID: 1, Title: "Two Sum", Difficulty: DifficultyEasy}, nil)
	testutil.AssertNil(t, err)
	_, err = repo.Upsert(ctx, Problem{FrontendID: 2534, Title: "Cross the Door", Difficulty: DifficultyHard, Premium: true}, nil)
	testutil.AssertNil(t, err)

	got, _, err := repo.Random(ctx, DifficultyEasy, false)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, got.FrontendID, int64(1))

	_, _, err = repo.Random(ctx, DifficultyHard, false)
	if !errors.Is(err, ErrProblemNotFound) {
		t.Fatalf("premium-only difficulty without premium: err = %v, want ErrProblemNotFound", err)
	}

	got, _, err = repo.Random(ctx, DifficultyHard, true)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, got.FrontendID, int64(2534))

	count, err := repo.Count(ctx)
	testutil.AssertNil(t, err)
	testutil.AssertEqual(t, count, int64(2))
}
