package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	problemrepo "leetbot/internal/problem/repository"
	"leetbot/internal/thread/repository"
	pkgerrors "leetbot/pkg/errors"
	"leetbot/pkg/utils/logger"

	"go.uber.org/zap"
)

// Outcome reports whether reconcile created a new thread or reopened an
// existing one.
type Outcome string

const (
	OutcomeCreate Outcome = "CREATE"
	OutcomeReopen Outcome = "REOPEN"
)

// canonicalTags are always ensured on a guild's forum channel before a
// thread is created.
var canonicalTags = []string{"LeetCode", "Easy", "Medium", "Hard"}

// lockStripes bounds the reconciler's lock table. Two pairs hashing to the
// same stripe serialize against each other, which is harmless; what matters
// is that the same pair always lands on the same stripe.
const lockStripes = 64

// Reconciler ensures exactly one live discussion thread exists per
// (guild, problem) pair, healing platform-side drift by recreating threads
// whose records have gone stale.
type Reconciler struct {
	registry repository.Registry
	platform Platform

	locks [lockStripes]sync.Mutex
}

// NewReconciler creates a new Reconciler.
func NewReconciler(registry repository.Registry, platform Platform) *Reconciler {
	return &Reconciler{
		registry: registry,
		platform: platform,
	}
}

// lockFor serializes reconciles per (guild, problem) so near-simultaneous
// invocations cannot create duplicate threads. The stripe set is fixed, so
// memory stays constant no matter how many pairs reconcile over the process
// lifetime.
func (r *Reconciler) lockFor(guildID string, problemID int64) *sync.Mutex {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", guildID, problemID)
	return &r.locks[h.Sum32()%lockStripes]
}

// Reconcile ensures one live thread for the problem in the guild's
// configured forum channel and returns it together with the outcome.
//
// Error codes: ForumChannelNotConfigured when no channel is set for the
// guild, ForumChannelInvalid when the configured channel no longer resolves
// to a forum, ThreadCreateFailed on platform write failures.
func (r *Reconciler) Reconcile(ctx context.Context, guildID string, problem problemrepo.Problem, tags []problemrepo.TopicTag) (Thread, Outcome, error) {
	lock := r.lockFor(guildID, problem.ID)
	lock.Lock()
	defer lock.Unlock()

	config, err := r.registry.GetForumChannel(ctx, guildID)
	if err != nil {
		if errors.Is(err, repository.ErrForumChannelNotFound) {
			return Thread{}, "", pkgerrors.New(pkgerrors.ForumChannelNotConfigured)
		}
		return Thread{}, "", pkgerrors.Wrap(err, pkgerrors.DatabaseError)
	}

	forum, err := r.platform.ForumChannel(ctx, config.ChannelID)
	if err != nil {
		if errors.Is(err, ErrChannelInvalid) {
			// Stronger than "not configured": the stored channel drifted on
			// the platform side (deleted, or its type changed).
			return Thread{}, "", pkgerrors.New(pkgerrors.ForumChannelInvalid)
		}
		return Thread{}, "", pkgerrors.Wrap(err, pkgerrors.ForumChannelInvalid)
	}

	record, err := r.registry.GetThread(ctx, guildID, problem.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrThreadNotFound) {
			return Thread{}, "", pkgerrors.Wrap(err, pkgerrors.DatabaseError)
		}
		thread, err := r.createThread(ctx, forum, guildID, problem, tags)
		if err != nil {
			return Thread{}, "", err
		}
		return thread, OutcomeCreate, nil
	}

	live, err := r.platform.LiveThread(ctx, record.ThreadID)
	if err == nil {
		return live, OutcomeReopen, nil
	}
	if !errors.Is(err, ErrThreadGone) {
		return Thread{}, "", pkgerrors.Wrap(err, pkgerrors.ThreadCreateFailed)
	}

	// The recorded thread vanished on the platform. Drop the stale record
	// and recreate.
	logger.Warn(ctx, "recorded thread no longer exists, recreating",
		zap.String("guild_id", guildID), zap.Int64("problem_id", problem.ID),
		zap.String("thread_id", record.ThreadID))
	if err := r.registry.DeleteThread(ctx, record.ThreadID); err != nil {
		return Thread{}, "", pkgerrors.Wrap(err, pkgerrors.DatabaseError)
	}
	thread, err := r.createThread(ctx, forum, guildID, problem, tags)
	if err != nil {
		return Thread{}, "", err
	}
	return thread, OutcomeCreate, nil
}

func (r *Reconciler) createThread(ctx context.Context, forum ForumChannel, guildID string, problem problemrepo.Problem, tags []problemrepo.TopicTag) (Thread, error) {
	available, err := r.ensureCanonicalTags(ctx, forum)
	if err != nil {
		return Thread{}, pkgerrors.Wrap(err, pkgerrors.ThreadCreateFailed)
	}

	content := problem.URL + "\n"
	if problem.Premium {
		content += "This problem is premium only, so there is no description available."
	}

	tagNames := make([]string, 0, len(tags))
	for _, t := range tags {
		tagNames = append(tagNames, t.Name)
	}

	// Exactly two labels: the bot's marker and the difficulty.
	applied := make([]string, 0, 2)
	for _, want := range []string{"LeetCode", problem.Difficulty.String()} {
		if id, ok := available[want]; ok {
			applied = append(applied, id)
		}
	}

	req := ThreadRequest{
		Name:          fmt.Sprintf("%d. %s", problem.FrontendID, problem.Title),
		Content:       content,
		AppliedTagIDs: applied,
		Card: ProblemCard{
			FrontendID:  problem.FrontendID,
			Title:       problem.Title,
			URL:         problem.URL,
			Difficulty:  problem.Difficulty,
			Description: problem.Description,
			Premium:     problem.Premium,
			TagNames:    tagNames,
		},
	}

	thread, err := r.platform.CreateThread(ctx, forum.ID, req)
	if err != nil {
		return Thread{}, pkgerrors.Wrap(err, pkgerrors.ThreadCreateFailed)
	}

	if _, err := r.registry.RecordThread(ctx, guildID, problem.ID, thread.ID); err != nil {
		return Thread{}, pkgerrors.Wrap(err, pkgerrors.DatabaseError)
	}

	logger.Info(ctx, "discussion thread created",
		zap.String("guild_id", guildID), zap.Int64("frontend_id", problem.FrontendID),
		zap.String("thread_id", thread.ID))
	return thread, nil
}

// ensureCanonicalTags creates any of the canonical forum tags the channel is
// missing and returns the tag name to id mapping.
func (r *Reconciler) ensureCanonicalTags(ctx context.Context, forum ForumChannel) (map[string]string, error) {
	available := make(map[string]string, len(forum.AvailableTags))
	for _, tag := range forum.AvailableTags {
		available[tag.Name] = tag.ID
	}

	for _, name := range canonicalTags {
		if _, ok := available[name]; ok {
			continue
		}
		tag, err := r.platform.CreateForumTag(ctx, forum.ID, name)
		if err != nil {
			return nil, err
		}
		available[tag.Name] = tag.ID
	}
	return available, nil
}
