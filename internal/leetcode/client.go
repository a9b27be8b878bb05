package leetcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultPageLimit = 500
)

var (
	// ErrNotFound is returned when the catalog does not know the problem or user.
	ErrNotFound = errors.New("not found in catalog")
)

// Config holds catalog API client settings.
type Config struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client talks to the LeetCode catalog API. It performs no retries; callers
// surface failures directly.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// questionPayload is the wire shape of a single problem.
type questionPayload struct {
	QuestionFrontendID string `json:"questionFrontendId"`
	QuestionTitle      string `json:"questionTitle"`
	Link               string `json:"link"`
	Difficulty         string `json:"difficulty"`
	Question           string `json:"question"`
	IsPaidOnly         bool   `json:"isPaidOnly"`
	TopicTags          []struct {
		Name string `json:"name"`
	} `json:"topicTags"`
}

func (p questionPayload) toDetail() (ProblemDetail, error) {
	frontendID, err := strconv.ParseInt(p.QuestionFrontendID, 10, 64)
	if err != nil {
		return ProblemDetail{}, fmt.Errorf("parse frontend id %q failed: %w", p.QuestionFrontendID, err)
	}
	tags := make([]string, 0, len(p.TopicTags))
	for _, t := range p.TopicTags {
		tags = append(tags, t.Name)
	}
	return ProblemDetail{
		FrontendID:  frontendID,
		Title:       p.QuestionTitle,
		URL:         p.Link,
		Difficulty:  p.Difficulty,
		Description: p.Question,
		Premium:     p.IsPaidOnly,
		Tags:        tags,
	}, nil
}

// FetchDaily returns today's problem.
func (c *Client) FetchDaily(ctx context.Context) (ProblemDetail, error) {
	var payload questionPayload
	if err := c.getJSON(ctx, "/daily", nil, &payload); err != nil {
		return ProblemDetail{}, err
	}
	return payload.toDetail()
}

// FetchByID returns the problem with the given frontend id,
// or ErrNotFound if the catalog does not know it.
func (c *Client) FetchByID(ctx context.Context, frontendID int64) (ProblemDetail, error) {
	var payload questionPayload
	path := "/problem/" + strconv.FormatInt(frontendID, 10)
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return ProblemDetail{}, err
	}
	return payload.toDetail()
}

// FetchRandom returns a random problem matching the filters. difficulty may
// be empty for any difficulty.
func (c *Client) FetchRandom(ctx context.Context, difficulty string, includePremium bool) (ProblemDetail, error) {
	query := url.Values{}
	if difficulty != "" {
		query.Set("difficulty", difficulty)
	}
	if includePremium {
		query.Set("premium", "true")
	}
	var payload questionPayload
	if err := c.getJSON(ctx, "/random", query, &payload); err != nil {
		return ProblemDetail{}, err
	}
	return payload.toDetail()
}

// FetchAll returns the full problem catalog, paging through the list
// endpoint until it is exhausted.
func (c *Client) FetchAll(ctx context.Context) ([]ProblemDetail, error) {
	var details []ProblemDetail
	skip := 0
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(defaultPageLimit))
		query.Set("skip", strconv.Itoa(skip))

		var page struct {
			Total     int               `json:"total"`
			Questions []questionPayload `json:"questions"`
		}
		if err := c.getJSON(ctx, "/problems", query, &page); err != nil {
			return nil, err
		}
		for _, q := range page.Questions {
			detail, err := q.toDetail()
			if err != nil {
				return nil, err
			}
			details = append(details, detail)
		}
		skip += len(page.Questions)
		if len(page.Questions) == 0 || skip >= page.Total {
			return details, nil
		}
	}
}

// FetchUserStats returns public profile and submission statistics for a user,
// or ErrNotFound if the username is unknown.
func (c *Client) FetchUserStats(ctx context.Context, username string) (UserStats, error) {
	var payload struct {
		GitHubURL   string `json:"githubUrl"`
		TwitterURL  string `json:"twitterUrl"`
		LinkedinURL string `json:"linkedinUrl"`
		Profile     struct {
			UserAvatar  string   `json:"userAvatar"`
			AboutMe     string   `json:"aboutMe"`
			CountryName string   `json:"countryName"`
			Company     string   `json:"company"`
			JobTitle    string   `json:"jobTitle"`
			School      string   `json:"school"`
			Websites    []string `json:"websites"`
		} `json:"profile"`
		SubmitStats struct {
			AcSubmissionNum []SubmissionCount `json:"acSubmissionNum"`
		} `json:"submitStats"`
	}
	if err := c.getJSON(ctx, "/user/"+url.PathEscape(username), nil, &payload); err != nil {
		return UserStats{}, err
	}
	return UserStats{
		Username:    username,
		AvatarURL:   payload.Profile.UserAvatar,
		AboutMe:     payload.Profile.AboutMe,
		Country:     payload.Profile.CountryName,
		Company:     payload.Profile.Company,
		JobTitle:    payload.Profile.JobTitle,
		School:      payload.Profile.School,
		Websites:    payload.Profile.Websites,
		GitHubURL:   payload.GitHubURL,
		TwitterURL:  payload.TwitterURL,
		LinkedinURL: payload.LinkedinURL,
		AcCounts:    payload.SubmitStats.AcSubmissionNum,
	}, nil
}

// Health checks the catalog API and returns its status line.
func (c *Client) Health(ctx context.Context) (string, error) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/health", nil, &payload); err != nil {
		return "", err
	}
	if payload.Status == "" {
		payload.Status = "ok"
	}
	return payload.Status, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s failed: %w", path, err)
	}
	return nil
}
