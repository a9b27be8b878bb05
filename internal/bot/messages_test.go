package bot

import (
	"errors"
	"strings"
	"testing"

	"leetbot/internal/testutil"
	pkgerrors "leetbot/pkg/errors"
)

func TestUserMessageKnownCodes(t *testing.T) {
	tests := []struct {
		code pkgerrors.ErrorCode
		want string
	}{
		{pkgerrors.ForumChannelNotConfigured, "/set_forum_channel"},
		{pkgerrors.ForumChannelInvalid, "/set_forum_channel"},
		{pkgerrors.ProblemNotFound, "No problem"},
		{pkgerrors.NoMatchingProblem, "filters"},
		{pkgerrors.UserStatsNotFound, "user"},
		{pkgerrors.UpstreamUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		got := userMessage(pkgerrors.New(tt.code))
		testutil.AssertTrue(t, strings.Contains(got, tt.want),
			"message for "+tt.code.Message()+" should mention "+tt.want)
	}
}

func TestUserMessageUnknownError(t *testing.T) {
	got := userMessage(errors.New("sql: driver closed"))
	testutil.AssertFalse(t, strings.Contains(got, "sql"),
		"internal details must not leak to chat")
}
