package bot

import (
	pkgerrors "leetbot/pkg/errors"
)

// userMessage translates a service error into a reply a Discord user can
// act on. Unknown codes get a generic message; internals stay in the logs.
func userMessage(err error) string {
	switch pkgerrors.GetCode(err) {
	case pkgerrors.ForumChannelNotConfigured:
		return "No forum channel is configured for this server. An administrator needs to run `/set_forum_channel` first."
	case pkgerrors.ForumChannelInvalid:
		return "The configured forum channel no longer exists or is not a forum channel. An administrator needs to run `/set_forum_channel` again."
	case pkgerrors.ThreadCreateFailed:
		return "Couldn't create the discussion thread. Check that the bot can create threads in the forum channel."
	case pkgerrors.ProblemNotFound:
		return "No problem with that number exists."
	case pkgerrors.NoMatchingProblem:
		return "No problem matches those filters."
	case pkgerrors.UserStatsNotFound:
		return "No LeetCode user with that name exists."
	case pkgerrors.RefreshFailed:
		return "The catalog refresh failed. Check the API and try again."
	case pkgerrors.UpstreamUnavailable, pkgerrors.UpstreamBadResponse:
		return "The problem API is currently unavailable. Try again in a bit."
	default:
		return "Something went wrong while handling that command."
	}
}
