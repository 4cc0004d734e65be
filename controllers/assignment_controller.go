package controllers

import (
	"net/http"
	"strings"

	"journal-workflow-api/models"
	"journal-workflow-api/services"

	"github.com/gin-gonic/gin"
)

// AssignmentController serves reviewer assignment endpoints.
type AssignmentController struct {
	engine *services.WorkflowEngine
}

func NewAssignmentController(engine *services.WorkflowEngine) *AssignmentController {
	return &AssignmentController{engine: engine}
}

// Assign invites a reviewer to the manuscript in the path.
func (ac *AssignmentController) Assign(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	assignment, err := ac.engine.Assign(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "assignment": assignment})
}

// ListActive lists the manuscript's open assignments.
func (ac *AssignmentController) ListActive(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	assignments, err := ac.engine.ListActive(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// Mine lists the caller's review queue.
func (ac *AssignmentController) Mine(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	assignments, err := ac.engine.ReviewerQueue(c.Request.Context(), actor)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"assignments": assignments,
		"total":       len(assignments),
	})
}

// Respond accepts or declines an invitation.
func (ac *AssignmentController) Respond(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		Response string `json:"response" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var accept bool
	switch strings.ToLower(strings.TrimSpace(req.Response)) {
	case "accept", "accepted":
		accept = true
	case "decline", "declined":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Response must be either 'accept' or 'decline'"})
		return
	}

	assignment, err := ac.engine.Respond(c.Request.Context(), actor, c.Param("id"), accept)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assignment": assignment})
}

// SubmitReview completes the caller's review.
func (ac *AssignmentController) SubmitReview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.ReviewSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req.Recommendation = models.Recommendation(strings.ToLower(strings.TrimSpace(string(req.Recommendation))))

	assignment, err := ac.engine.SubmitReview(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assignment": assignment})
}

// Withdraw cancels a pending invitation.
func (ac *AssignmentController) Withdraw(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	assignment, err := ac.engine.Withdraw(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assignment": assignment})
}
