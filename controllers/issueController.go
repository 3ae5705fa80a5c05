package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"urbanconnect-be/models"
	"urbanconnect-be/repository"
	"urbanconnect-be/services"
	"urbanconnect-be/utils"

	"github.com/gin-gonic/gin"
)

type IssueController struct {
	pipeline *services.SubmissionPipeline
	issues   *services.IssueService
}

func NewIssueController(pipeline *services.SubmissionPipeline, issues *services.IssueService) *IssueController {
	return &IssueController{pipeline: pipeline, issues: issues}
}

// CreateIssue runs a citizen report through the submission pipeline. It
// accepts JSON with base64 or data-URL images, or a multipart form with
// "images" files.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	var (
		req services.SubmitRequest
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err = bindSubmissionForm(c)
	} else {
		req, err = bindSubmissionJSON(c)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	issue, err := ic.pipeline.Submit(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "issue": issue.View()})
}

type submissionInput struct {
	Title       string `json:"title" form:"title" binding:"max=200"`
	Description string `json:"description" form:"description" binding:"max=2000"`
	Location    string `json:"location" form:"location" binding:"max=300"`
	Category    string `json:"category" form:"category"`
	Priority    string `json:"priority" form:"priority"`
}

func (in submissionInput) request() services.SubmitRequest {
	return services.SubmitRequest{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Category:    in.Category,
		Priority:    in.Priority,
	}
}

func bindSubmissionJSON(c *gin.Context) (services.SubmitRequest, error) {
	var input struct {
		submissionInput
		Images []string `json:"images"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		return services.SubmitRequest{}, invalidInput(err.Error())
	}

	req := input.request()
	for _, payload := range input.Images {
		data, contentType, err := utils.DecodeImage(payload)
		if errors.Is(err, utils.ErrEmptyImage) {
			continue
		}
		if err != nil {
			return services.SubmitRequest{}, invalidInput("Invalid image data")
		}
		req.Images = append(req.Images, services.Image{Data: data, ContentType: contentType})
	}
	return req, nil
}

func bindSubmissionForm(c *gin.Context) (services.SubmitRequest, error) {
	var input submissionInput
	if err := c.ShouldBind(&input); err != nil {
		return services.SubmitRequest{}, invalidInput(err.Error())
	}
	form, err := c.MultipartForm()
	if err != nil {
		return services.SubmitRequest{}, invalidInput("Invalid multipart form")
	}

	req := input.request()
	for _, fh := range form.File["images"] {
		data, contentType, err := utils.ReadUpload(fh, services.MaxImageBytes)
		if errors.Is(err, utils.ErrEmptyImage) {
			continue
		}
		if errors.Is(err, utils.ErrTooLarge) {
			return services.SubmitRequest{}, invalidInput("Image is too large")
		}
		if err != nil {
			return services.SubmitRequest{}, invalidInput("Could not read uploaded image")
		}
		req.Images = append(req.Images, services.Image{Data: data, ContentType: contentType})
	}
	return req, nil
}

func invalidInput(msg string) error {
	e := *services.ErrInvalidInput
	e.Message = msg
	return &e
}

// GetIssue returns one issue with its stage progress and votes
func (ic *IssueController) GetIssue(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	view, err := ic.issues.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "issue": view})
}

// GetAllIssues lists issues with filtering, pagination and vote counts
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	page, err := ic.issues.List(c.Request.Context(), actor(c), listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetMyIssues lists the caller's own reports
func (ic *IssueController) GetMyIssues(c *gin.Context) {
	page, err := ic.issues.Mine(c.Request.Context(), actor(c), listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetPendingIssues lists the review queue, oldest first
func (ic *IssueController) GetPendingIssues(c *gin.Context) {
	f := listFilter(c)
	f.Status = models.Pending
	f.Oldest = c.DefaultQuery("sort", "oldest") == "oldest"
	page, err := ic.issues.List(c.Request.Context(), actor(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetResolvedIssues is the public list of recently fixed issues
func (ic *IssueController) GetResolvedIssues(c *gin.Context) {
	f := listFilter(c)
	f.Status = models.Resolved
	if c.Query("limit") == "" {
		f.Limit = 6
	}
	page, err := ic.issues.List(c.Request.Context(), actor(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (ic *IssueController) ToggleVote(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	voted, count, err := ic.issues.ToggleVote(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voted": voted, "votes": count})
}

func (ic *IssueController) SubmitFeedback(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	issue, err := ic.issues.SubmitFeedback(c.Request.Context(), actor(c), id, input.Rating, input.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "issue": issue.View()})
}

// listFilter reads category, status, search, sort, page and limit. "all"
// disables a category or status filter.
func listFilter(c *gin.Context) repository.IssueFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	f := repository.IssueFilter{
		Search: c.Query("search"),
		Oldest: c.Query("sort") == "oldest",
		Page:   page,
		Limit:  limit,
	}
	if category := c.Query("category"); category != "" && category != "all" {
		f.Category = models.IssueCategory(category)
	}
	if status := c.Query("status"); status != "" && status != "all" {
		f.Status = models.IssueStatus(status)
	}
	return f
}
