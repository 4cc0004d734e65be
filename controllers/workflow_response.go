package controllers

import (
	"errors"
	"log"
	"net/http"

	"journal-workflow-api/middleware"
	"journal-workflow-api/models"
	"journal-workflow-api/services"

	"github.com/gin-gonic/gin"
)

// requireActor returns the authenticated caller or writes a 401.
func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User context missing"})
		return models.Actor{}, false
	}
	return actor, true
}

func workflowStatusCode(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrBlobNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrDuplicateAssignment),
		errors.Is(err, services.ErrIncompleteReview),
		errors.Is(err, services.ErrStaleAggregate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondWorkflowError maps engine failures onto HTTP statuses. Unknown
// errors are logged and reported without detail.
func respondWorkflowError(c *gin.Context, err error) {
	status := workflowStatusCode(err)
	if status == http.StatusInternalServerError {
		log.Printf("workflow request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	if werr, ok := services.AsWorkflowError(err); ok {
		body["error"] = werr.Message
		body["kind"] = werr.Kind.Error()
		if werr.CurrentStatus != "" {
			body["current_status"] = werr.CurrentStatus
		}
		if werr.ReviewerID != "" {
			body["reviewer_id"] = werr.ReviewerID
		}
		if len(werr.Outstanding) > 0 {
			body["outstanding_assignments"] = werr.Outstanding
		}
	}
	c.JSON(status, body)
}
