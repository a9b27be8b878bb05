package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Problem module errors
// 12000-12999: Guild & Thread module errors
// 13000-13999: Upstream catalog API errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Forbidden           ErrorCode = 10004
	Timeout             ErrorCode = 10005

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// ========== Problem Module Errors (11000-11999) ==========

	ProblemNotFound     ErrorCode = 11000
	ProblemUpsertFailed ErrorCode = 11001
	NoMatchingProblem   ErrorCode = 11002
	RefreshFailed       ErrorCode = 11003
	TagInvalid          ErrorCode = 11100

	// ========== Guild & Thread Module Errors (12000-12999) ==========

	ForumChannelNotConfigured ErrorCode = 12000
	ForumChannelInvalid       ErrorCode = 12001
	ThreadCreateFailed        ErrorCode = 12100
	ThreadRecordNotFound      ErrorCode = 12101

	// ========== Upstream Catalog API Errors (13000-13999) ==========

	UpstreamUnavailable ErrorCode = 13000
	UpstreamBadResponse ErrorCode = 13001
	UserStatsNotFound   ErrorCode = 13100
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Forbidden:           "Access forbidden",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:  "Database operation failed",
	RecordNotFound: "Record not found in database",

	// Cache
	CacheError: "Cache operation failed",

	// Problem
	ProblemNotFound:     "Problem not found",
	ProblemUpsertFailed: "Failed to store problem",
	NoMatchingProblem:   "No problem matches the given filters",
	RefreshFailed:       "Failed to refresh problem cache",
	TagInvalid:          "Invalid topic tag",

	// Guild & Thread
	ForumChannelNotConfigured: "Forum channel is not configured for this guild",
	ForumChannelInvalid:       "Configured forum channel is missing or not a forum",
	ThreadCreateFailed:        "Failed to create discussion thread",
	ThreadRecordNotFound:      "Thread record not found",

	// Upstream
	UpstreamUnavailable: "LeetCode API is unavailable",
	UpstreamBadResponse: "LeetCode API returned an unexpected response",
	UserStatsNotFound:   "LeetCode user not found",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Forbidden:
		return 403
	case c == NotFound, c == RecordNotFound, c == ProblemNotFound,
		c == NoMatchingProblem, c == ThreadRecordNotFound, c == UserStatsNotFound:
		return 404
	case c == InvalidParams:
		return 400
	case c == UpstreamUnavailable:
		return 502
	case c == Timeout:
		return 504
	default:
		return 500
	}
}
