package controller

import (
	"strconv"

	"leetbot/internal/problem/repository"
	"leetbot/internal/problem/service"
	"leetbot/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemController handles the operator-facing HTTP endpoints.
type ProblemController struct {
	problemService *service.ProblemService
}

// NewProblemController creates a new ProblemController.
func NewProblemController(problemService *service.ProblemService) *ProblemController {
	return &ProblemController{problemService: problemService}
}

// Get handles problem lookup by frontend id.
func (h *ProblemController) Get(c *gin.Context) {
	idStr := c.Param("id")
	frontendID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || frontendID <= 0 {
		response.BadRequest(c, "Invalid problem id")
		return
	}

	problem, tags, err := h.problemService.ByFrontendID(c.Request.Context(), frontendID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, newProblemResponse(problem, tags))
}

// Random handles random problem selection with optional filters.
func (h *ProblemController) Random(c *gin.Context) {
	difficulty := repository.ParseDifficulty(c.Query("difficulty"))
	includePremium := c.Query("premium") == "true"

	problem, tags, err := h.problemService.Random(c.Request.Context(), difficulty, includePremium)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, newProblemResponse(problem, tags))
}

// Daily handles today's challenge lookup.
func (h *ProblemController) Daily(c *gin.Context) {
	problem, tags, err := h.problemService.Daily(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, newProblemResponse(problem, tags))
}

// Refresh handles a full catalog re-sync.
func (h *ProblemController) Refresh(c *gin.Context) {
	count, err := h.problemService.RefreshAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "Refresh complete", RefreshResponse{Stored: count})
}

// Health reports whether the upstream problem API is reachable.
func (h *ProblemController) Health(c *gin.Context) {
	status, err := h.problemService.CheckAPI(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	count, err := h.problemService.StoredCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, HealthResponse{Upstream: status, StoredProblems: count})
}

// ProblemResponse is the wire form of a stored problem.
type ProblemResponse struct {
	FrontendID  int64    `json:"frontend_id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Difficulty  string   `json:"difficulty"`
	Description string   `json:"description,omitempty"`
	Premium     bool     `json:"premium"`
	Tags        []string `json:"tags,omitempty"`
}

// RefreshResponse reports the catalog size after a refresh.
type RefreshResponse struct {
	Stored int `json:"stored"`
}

// HealthResponse reports upstream and store health.
type HealthResponse struct {
	Upstream       string `json:"upstream"`
	StoredProblems int64  `json:"stored_problems"`
}

func newProblemResponse(problem repository.Problem, tags []repository.TopicTag) ProblemResponse {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return ProblemResponse{
		FrontendID:  problem.FrontendID,
		Title:       problem.Title,
		URL:         problem.URL,
		Difficulty:  problem.Difficulty.String(),
		Description: problem.Description,
		Premium:     problem.Premium,
		Tags:        names,
	}
}
