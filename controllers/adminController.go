package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"urbanconnect-be/models"
	"urbanconnect-be/services"
	"urbanconnect-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminController struct {
	triage    *services.AdminTriage
	analytics *services.AnalyticsService
}

func NewAdminController(triage *services.AdminTriage, analytics *services.AnalyticsService) *AdminController {
	return &AdminController{triage: triage, analytics: analytics}
}

// UpdateStatus changes an issue's status. Resolving needs resolution text
// and an after image, sent either as "after_image" base64 in JSON or as an
// "after_image" file in a multipart form.
func (ac *AdminController) UpdateStatus(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	var input struct {
		Status          string `json:"status" form:"status" binding:"required"`
		Resolution      string `json:"resolution" form:"resolution" binding:"max=2000"`
		RejectionReason string `json:"rejection_reason" form:"rejection_reason" binding:"max=1000"`
		AfterImage      string `json:"after_image" form:"-"`
	}
	multipart := strings.HasPrefix(c.ContentType(), "multipart/")
	var err error
	if multipart {
		err = c.ShouldBind(&input)
	} else {
		err = c.ShouldBindJSON(&input)
	}
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	upd := services.StatusUpdate{
		Status:          models.IssueStatus(input.Status),
		Resolution:      input.Resolution,
		RejectionReason: input.RejectionReason,
	}
	img, err := afterImage(c, multipart, input.AfterImage)
	if err != nil {
		respondError(c, err)
		return
	}
	upd.AfterImage = img

	issue, err := ac.triage.SetStatus(c.Request.Context(), actor(c), id, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "issue": issue.View()})
}

func afterImage(c *gin.Context, multipart bool, payload string) (*services.Image, error) {
	if multipart {
		fh, err := c.FormFile("after_image")
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		if err != nil {
			return nil, invalidInput("Invalid multipart form")
		}
		data, contentType, err := utils.ReadUpload(fh, services.MaxImageBytes)
		if errors.Is(err, utils.ErrTooLarge) {
			return nil, invalidInput("Image is too large")
		}
		if err != nil {
			return nil, invalidInput("Could not read uploaded image")
		}
		return &services.Image{Data: data, ContentType: contentType}, nil
	}

	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	data, contentType, err := utils.DecodeImage(payload)
	if err != nil {
		return nil, invalidInput("Invalid image data")
	}
	return &services.Image{Data: data, ContentType: contentType}, nil
}

// AssignIssue hands an issue to a worker
func (ac *AdminController) AssignIssue(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		WorkerID     string `json:"worker_id" binding:"required"`
		Instructions string `json:"instructions" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	workerID, err := primitive.ObjectIDFromHex(input.WorkerID)
	if err != nil {
		badRequest(c, "Invalid worker ID")
		return
	}

	issue, err := ac.triage.Assign(c.Request.Context(), actor(c), id, workerID, input.Instructions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "issue": issue.View()})
}

// UpdateStage moves an open issue forward in the review sequence
func (ac *AdminController) UpdateStage(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		Stage string `json:"stage" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	issue, err := ac.triage.AdvanceStage(c.Request.Context(), actor(c), id, models.IssueStage(input.Stage))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "issue": issue.View()})
}

// GetActivity returns the recent activity feed
func (ac *AdminController) GetActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	entries, err := ac.triage.RecentActivity(c.Request.Context(), actor(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}

func (ac *AdminController) GetWorkers(c *gin.Context) {
	workers, err := ac.triage.Workers(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": workers})
}

// GetAnalytics returns issue counts by status and category, the last seven
// days of reports and the most voted issues
func (ac *AdminController) GetAnalytics(c *gin.Context) {
	dashboard, err := ac.analytics.Dashboard(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
