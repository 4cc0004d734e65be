package controllers

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"journal-workflow-api/models"
	"journal-workflow-api/services"
	"journal-workflow-api/utils"

	"github.com/gin-gonic/gin"
)

// ManuscriptController serves the manuscript lifecycle endpoints.
type ManuscriptController struct {
	engine *services.WorkflowEngine
}

func NewManuscriptController(engine *services.WorkflowEngine) *ManuscriptController {
	return &ManuscriptController{engine: engine}
}

// Create starts a draft for the calling author.
func (mc *ManuscriptController) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var draft models.ManuscriptDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	manuscript, err := mc.engine.Create(c.Request.Context(), actor, draft)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "manuscript": manuscript})
}

// List returns manuscripts visible to the caller, optionally filtered by ?status=.
func (mc *ManuscriptController) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var status models.ManuscriptStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, ok := utils.ParseManuscriptStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		status = parsed
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	manuscripts, err := mc.engine.List(c.Request.Context(), actor, status, limit)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"manuscripts": manuscripts,
		"total":       len(manuscripts),
	})
}

// Get returns one manuscript with its decisions and status timeline.
func (mc *ManuscriptController) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	view, err := mc.engine.View(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	body := gin.H{
		"success":      true,
		"manuscript":   view.Manuscript,
		"status_label": utils.StatusLabel(view.Manuscript.Status),
	}

	// Reviewers see the manuscript but not its decisions or timeline.
	if view.Decisions != nil || view.Timeline != nil {
		body["decisions"] = view.Decisions
		body["timeline"] = view.Timeline
	}

	c.JSON(http.StatusOK, body)
}

// UploadFile attaches the multipart "file" field under the role in the path.
func (mc *ManuscriptController) UploadFile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	role, ok := models.ParseFileRole(c.Param("role"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file role"})
		return
	}

	settings := mc.engine.Settings()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, settings.MaxUploadBytes()+(1<<20))

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	if header.Size > settings.MaxUploadBytes() {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !settings.AllowsMediaType(contentType) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "File type is not allowed"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	manuscript, err := mc.engine.AttachFile(c.Request.Context(), actor, c.Param("id"), role, header.Filename, contentType, data)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": manuscript})
}

// DownloadFile streams the stored file for a role.
func (mc *ManuscriptController) DownloadFile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	role, ok := models.ParseFileRole(c.Param("role"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file role"})
		return
	}

	file, data, err := mc.engine.OpenFile(c.Request.Context(), actor, c.Param("id"), role)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(file.Name, `"`, "")+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// Submit sends a draft or a revision to the editors.
func (mc *ManuscriptController) Submit(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	manuscript, err := mc.engine.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": manuscript})
}

// Decide records the editorial decision for the current round.
func (mc *ManuscriptController) Decide(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req.Outcome = models.Recommendation(strings.ToLower(strings.TrimSpace(string(req.Outcome))))

	decision, err := mc.engine.Decide(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "decision": decision})
}

// Publish assigns the DOI of an accepted manuscript.
func (mc *ManuscriptController) Publish(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		DOI           string     `json:"doi" binding:"required"`
		PublishedDate *time.Time `json:"published_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var publishedDate time.Time
	if req.PublishedDate != nil {
		publishedDate = *req.PublishedDate
	}

	manuscript, err := mc.engine.Publish(c.Request.Context(), actor, c.Param("id"), req.DOI, publishedDate)
	if err != nil {
		respondWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "manuscript": manuscript})
}
