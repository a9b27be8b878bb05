package leetcode

// ProblemDetail is a problem as returned by the catalog API, normalized for
// storage.
type ProblemDetail struct {
	FrontendID  int64
	Title       string
	URL         string
	Difficulty  string // Easy, Medium, Hard
	Description string
	Premium     bool
	Tags        []string
}

// SubmissionCount holds accepted/total submission counts for one difficulty
// bucket ("All", "Easy", "Medium", "Hard").
type SubmissionCount struct {
	Difficulty  string `json:"difficulty"`
	Count       int    `json:"count"`
	Submissions int    `json:"submissions"`
}

// UserStats is a user's public profile and submission statistics.
type UserStats struct {
	Username    string
	AvatarURL   string
	AboutMe     string
	Country     string
	Company     string
	JobTitle    string
	School      string
	Websites    []string
	GitHubURL   string
	TwitterURL  string
	LinkedinURL string
	AcCounts    []SubmissionCount
}

// AcceptedAll returns the "All" bucket of accepted submissions, if present.
func (s UserStats) AcceptedAll() (SubmissionCount, bool) {
	for _, c := range s.AcCounts {
		if c.Difficulty == "All" {
			return c, true
		}
	}
	return SubmissionCount{}, false
}
