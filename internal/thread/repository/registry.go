package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"leetbot/internal/common/db"
	"leetbot/pkg/utils/logger"

	"go.uber.org/zap"
)

var (
	ErrForumChannelNotFound = errors.New("forum channel not configured")
	ErrThreadNotFound       = errors.New("problem thread not found")
)

// GuildForumChannel designates the forum channel hosting problem threads for
// one guild. One row per guild.
type GuildForumChannel struct {
	ID        int64
	GuildID   string
	ChannelID string
}

// ProblemThread ties a (problem, forum-channel) pair to a created platform
// thread. At most one per (guild, problem); thread id is unique.
type ProblemThread struct {
	ID              int64
	ThreadID        string
	ProblemID       int64
	ChannelConfigID int64
	GuildID         string
}

// Registry persists forum-channel configuration and created threads. Reads
// go through an in-memory cache populated at startup; every mutation writes
// to storage first and then updates the cache in the same step.
type Registry interface {
	// LoadCache bulk-loads the in-memory cache from storage.
	LoadCache(ctx context.Context) error

	// GetForumChannel returns the guild's configured forum channel,
	// or ErrForumChannelNotFound.
	GetForumChannel(ctx context.Context, guildID string) (GuildForumChannel, error)

	// SetForumChannel upserts the guild's forum channel configuration.
	SetForumChannel(ctx context.Context, guildID, channelID string) (GuildForumChannel, error)

	// GetThread returns the recorded thread for (guild, problem),
	// or ErrThreadNotFound.
	GetThread(ctx context.Context, guildID string, problemID int64) (ProblemThread, error)

	// RecordThread stores a newly created thread for (guild, problem).
	RecordThread(ctx context.Context, guildID string, problemID int64, threadID string) (ProblemThread, error)

	// DeleteThread removes a thread record by its platform thread id.
	// Deleting a record that is already gone is not an error.
	DeleteThread(ctx context.Context, threadID string) error
}

// MySQLRegistry implements Registry on MySQL.
type MySQLRegistry struct {
	db db.Provider

	mu       sync.RWMutex
	channels map[string]GuildForumChannel // guild id -> config
	threads  map[string]ProblemThread     // thread id -> record
	byPair   map[string]string            // guild id + problem id -> thread id
}

func NewRegistry(provider db.Provider) *MySQLRegistry {
	return &MySQLRegistry{
		db:       provider,
		channels: make(map[string]GuildForumChannel),
		threads:  make(map[string]ProblemThread),
		byPair:   make(map[string]string),
	}
}

func pairKey(guildID string, problemID int64) string {
	return fmt.Sprintf("%s:%d", guildID, problemID)
}

func (r *MySQLRegistry) LoadCache(ctx context.Context) error {
	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return err
	}

	channels := make(map[string]GuildForumChannel)
	rows, err := database.Query(ctx, "SELECT id, guild_id, channel_id FROM guild_forum_channels")
	if err != nil {
		return err
	}
	for rows.Next() {
		var ch GuildForumChannel
		if err := rows.Scan(&ch.ID, &ch.GuildID, &ch.ChannelID); err != nil {
			_ = rows.Close()
			return err
		}
		channels[ch.GuildID] = ch
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	threads := make(map[string]ProblemThread)
	byPair := make(map[string]string)
	query := `
		SELECT pt.id, pt.thread_id, pt.problem_id, pt.channel_config_id, c.guild_id
		FROM problem_threads pt
		JOIN guild_forum_channels c ON c.id = pt.channel_config_id`
	rows, err = database.Query(ctx, query)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var t ProblemThread
		if err := rows.Scan(&t.ID, &t.ThreadID, &t.ProblemID, &t.ChannelConfigID, &t.GuildID); err != nil {
			return err
		}
		threads[t.ThreadID] = t
		byPair[pairKey(t.GuildID, t.ProblemID)] = t.ThreadID
	}
	if err := rows.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.channels = channels
	r.threads = threads
	r.byPair = byPair
	r.mu.Unlock()

	logger.Info(ctx, "thread registry cache loaded",
		zap.Int("forum_channels", len(channels)), zap.Int("problem_threads", len(threads)))
	return nil
}

func (r *MySQLRegistry) GetForumChannel(ctx context.Context, guildID string) (GuildForumChannel, error) {
	r.mu.RLock()
	ch, ok := r.channels[guildID]
	r.mu.RUnlock()
	if ok {
		return ch, nil
	}

	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return GuildForumChannel{}, err
	}
	row := database.QueryRow(ctx,
		"SELECT id, guild_id, channel_id FROM guild_forum_channels WHERE guild_id = ?", guildID)
	if err := row.Scan(&ch.ID, &ch.GuildID, &ch.ChannelID); err != nil {
		if db.IsNoRows(err) {
			return GuildForumChannel{}, ErrForumChannelNotFound
		}
		return GuildForumChannel{}, err
	}

	r.mu.Lock()
	r.channels[guildID] = ch
	r.mu.Unlock()
	return ch, nil
}

func (r *MySQLRegistry) SetForumChannel(ctx context.Context, guildID, channelID string) (GuildForumChannel, error) {
	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return GuildForumChannel{}, err
	}

	ch := GuildForumChannel{GuildID: guildID, ChannelID: channelID}
	err = db.InTransaction(ctx, database, func(tx db.Transaction) error {
		var existingID int64
		row := tx.QueryRow(ctx, "SELECT id FROM guild_forum_channels WHERE guild_id = ?", guildID)
		switch err := row.Scan(&existingID); {
		case err == nil:
			ch.ID = existingID
			_, err2 := tx.Exec(ctx,
				"UPDATE guild_forum_channels SET channel_id = ? WHERE id = ?", channelID, existingID)
			return err2
		case db.IsNoRows(err):
			result, err2 := tx.Exec(ctx,
				"INSERT INTO guild_forum_channels (guild_id, channel_id) VALUES (?, ?)", guildID, channelID)
			if err2 != nil {
				return err2
			}
			id, err2 := result.LastInsertId()
			if err2 != nil {
				return err2
			}
			ch.ID = id
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return GuildForumChannel{}, err
	}

	r.mu.Lock()
	r.channels[guildID] = ch
	r.mu.Unlock()

	logger.Info(ctx, "forum channel configured",
		zap.String("guild_id", guildID), zap.String("channel_id", channelID))
	return ch, nil
}

func (r *MySQLRegistry) GetThread(ctx context.Context, guildID string, problemID int64) (ProblemThread, error) {
	r.mu.RLock()
	threadID, ok := r.byPair[pairKey(guildID, problemID)]
	var cached ProblemThread
	if ok {
		cached, ok = r.threads[threadID]
	}
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return ProblemThread{}, err
	}
	query := `
		SELECT pt.id, pt.thread_id, pt.problem_id, pt.channel_config_id, c.guild_id
		FROM problem_threads pt
		JOIN guild_forum_channels c ON c.id = pt.channel_config_id
		WHERE c.guild_id = ? AND pt.problem_id = ?`
	var t ProblemThread
	row := database.QueryRow(ctx, query, guildID, problemID)
	if err := row.Scan(&t.ID, &t.ThreadID, &t.ProblemID, &t.ChannelConfigID, &t.GuildID); err != nil {
		if db.IsNoRows(err) {
			return ProblemThread{}, ErrThreadNotFound
		}
		return ProblemThread{}, err
	}

	r.mu.Lock()
	r.threads[t.ThreadID] = t
	r.byPair[pairKey(t.GuildID, t.ProblemID)] = t.ThreadID
	r.mu.Unlock()
	return t, nil
}

func (r *MySQLRegistry) RecordThread(ctx context.Context, guildID string, problemID int64, threadID string) (ProblemThread, error) {
	ch, err := r.GetForumChannel(ctx, guildID)
	if err != nil {
		return ProblemThread{}, err
	}

	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return ProblemThread{}, err
	}
	result, err := database.Exec(ctx,
		"INSERT INTO problem_threads (thread_id, problem_id, channel_config_id) VALUES (?, ?, ?)",
		threadID, problemID, ch.ID)
	if err != nil {
		// Another process recorded a thread for this pair first; surface
		// its record instead of failing.
		if _, ok := db.UniqueViolation(err); ok {
			return r.GetThread(ctx, guildID, problemID)
		}
		return ProblemThread{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return ProblemThread{}, err
	}

	t := ProblemThread{
		ID:              id,
		ThreadID:        threadID,
		ProblemID:       problemID,
		ChannelConfigID: ch.ID,
		GuildID:         guildID,
	}
	r.mu.Lock()
	r.threads[threadID] = t
	r.byPair[pairKey(guildID, problemID)] = threadID
	r.mu.Unlock()

	logger.Info(ctx, "problem thread recorded",
		zap.String("guild_id", guildID), zap.Int64("problem_id", problemID), zap.String("thread_id", threadID))
	return t, nil
}

func (r *MySQLRegistry) DeleteThread(ctx context.Context, threadID string) error {
	database, err := db.CurrentDatabase(r.db)
	if err != nil {
		return err
	}
	if _, err := database.Exec(ctx, "DELETE FROM problem_threads WHERE thread_id = ?", threadID); err != nil {
		return err
	}

	r.mu.Lock()
	if t, ok := r.threads[threadID]; ok {
		delete(r.byPair, pairKey(t.GuildID, t.ProblemID))
		delete(r.threads, threadID)
	}
	r.mu.Unlock()

	logger.Info(ctx, "problem thread record deleted", zap.String("thread_id", threadID))
	return nil
}
