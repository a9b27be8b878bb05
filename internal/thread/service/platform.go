package service

import (
	"context"
	"errors"

	problemrepo "leetbot/internal/problem/repository"
)

var (
	// ErrChannelInvalid indicates the configured channel no longer resolves
	// to a live forum channel on the platform.
	ErrChannelInvalid = errors.New("channel is missing or not a forum")

	// ErrThreadGone indicates a recorded thread no longer exists on the
	// platform.
	ErrThreadGone = errors.New("thread no longer exists")
)

// ForumTag is a platform-defined label available on a forum channel.
type ForumTag struct {
	ID   string
	Name string
}

// ForumChannel is a resolved live forum channel.
type ForumChannel struct {
	ID            string
	GuildID       string
	AvailableTags []ForumTag
}

// Thread is a live discussion thread.
type Thread struct {
	ID        string
	ChannelID string
	Name      string
}

// ProblemCard carries the problem fields the platform renders as the
// thread's pinned message.
type ProblemCard struct {
	FrontendID  int64
	Title       string
	URL         string
	Difficulty  problemrepo.Difficulty
	Description string
	Premium     bool
	TagNames    []string
}

// ThreadRequest describes a thread to create on a forum channel.
type ThreadRequest struct {
	Name          string
	Content       string
	AppliedTagIDs []string
	Card          ProblemCard
}

// Platform is the narrow chat-platform surface the reconciler needs.
// The production implementation wraps the Discord session; tests use fakes.
type Platform interface {
	// ForumChannel resolves a channel id to a live forum channel.
	// Returns ErrChannelInvalid when the channel is gone or not a forum.
	ForumChannel(ctx context.Context, channelID string) (ForumChannel, error)

	// LiveThread resolves a thread id to a live thread.
	// Returns ErrThreadGone when the thread no longer exists.
	LiveThread(ctx context.Context, threadID string) (Thread, error)

	// CreateForumTag adds a tag to the forum channel and returns it.
	CreateForumTag(ctx context.Context, channelID, name string) (ForumTag, error)

	// CreateThread opens a new thread on the forum channel.
	CreateThread(ctx context.Context, channelID string, req ThreadRequest) (Thread, error)
}
