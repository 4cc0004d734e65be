package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"journal-workflow-api/middleware"
	"journal-workflow-api/models"
	"journal-workflow-api/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-secret"

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	tokens map[string]string
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	blobs, err := services.NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	engine, err := services.NewWorkflowEngine(services.NewInmemRepository(), services.LogSink{}, services.WithBlobStore(blobs))
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, engine, middleware.NewJWTIdentityProvider(testSecret))

	c := &apiClient{t: t, router: router, tokens: map[string]string{}}
	for _, actor := range []models.Actor{
		{UserID: "author-1", Roles: []models.Role{models.RoleAuthor}},
		{UserID: "author-2", Roles: []models.Role{models.RoleAuthor}},
		{UserID: "editor-1", Roles: []models.Role{models.RoleEditor}},
		{UserID: "rev-a", Roles: []models.Role{models.RoleReviewer}},
	} {
		token, err := middleware.GenerateToken(testSecret, actor, "")
		require.NoError(t, err)
		c.tokens[actor.UserID] = token
	}
	return c
}

func (c *apiClient) do(method, path, user string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+c.tokens[user])
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func (c *apiClient) json(method, path, user string, payload interface{}) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewReader(raw)
	}
	return c.do(method, path, user, body, "application/json")
}

func (c *apiClient) upload(path, user, contentType string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="paper.pdf"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(c.t, err)
	_, err = part.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, w.Close())
	return c.do(http.MethodPost, path, user, &buf, w.FormDataContentType())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func field(t *testing.T, rec *httptest.ResponseRecorder, object, key string) interface{} {
	t.Helper()
	obj, ok := decode(t, rec)[object].(map[string]interface{})
	require.True(t, ok, "missing %q in %s", object, rec.Body.String())
	return obj[key]
}

func TestHealthIsPublic(t *testing.T) {
	c := newAPIClient(t)
	rec := c.do(http.MethodGet, "/api/v1/health", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/manuscripts", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestManuscriptLifecycleOverHTTP(t *testing.T) {
	c := newAPIClient(t)

	rec := c.json(http.MethodPost, "/api/v1/manuscripts", "author-1", map[string]interface{}{
		"title":    "Test Paper",
		"abstract": "An abstract.",
		"section":  "Physics",
		"keywords": []string{"review"},
		"authors": []map[string]interface{}{
			{"name": "Ada Author", "email": "ada@example.org", "user_id": "author-1", "is_corresponding": true},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := field(t, rec, "manuscript", "id").(string)
	base := "/api/v1/manuscripts/" + id

	rec = c.upload(base+"/files/manuscript", "author-1", "image/png", []byte("png"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = c.upload(base+"/files/manuscript", "author-1", "application/pdf", []byte("%PDF-1.4"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, base+"/files/manuscript", "author-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	rec = c.json(http.MethodPost, base+"/submit", "author-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "submitted", field(t, rec, "manuscript", "status"))

	rec = c.json(http.MethodPost, base+"/assignments", "editor-1", map[string]string{"reviewer_id": "rev-a"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assignmentID := field(t, rec, "assignment", "id").(string)

	rec = c.json(http.MethodPost, base+"/assignments", "editor-1", map[string]string{"reviewer_id": "rev-a"})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "duplicate assignment", body["kind"])
	assert.Equal(t, "rev-a", body["reviewer_id"])

	rec = c.json(http.MethodPost, base+"/decision", "editor-1", map[string]string{"outcome": "accept"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, []interface{}{assignmentID}, decode(t, rec)["outstanding_assignments"])

	rec = c.do(http.MethodGet, "/api/v1/assignments/mine", "rev-a", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = c.json(http.MethodPost, "/api/v1/assignments/"+assignmentID+"/respond", "rev-a", map[string]string{"response": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.json(http.MethodPost, "/api/v1/assignments/"+assignmentID+"/respond", "rev-a", map[string]string{"response": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.json(http.MethodPost, "/api/v1/assignments/"+assignmentID+"/review", "rev-a", map[string]string{
		"recommendation": "Accept",
		"comments":       "Sound work.",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", field(t, rec, "assignment", "status"))

	rec = c.json(http.MethodPost, base+"/decision", "rev-a", map[string]string{"outcome": "accept"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.json(http.MethodPost, base+"/decision", "editor-1", map[string]string{"outcome": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []interface{}{assignmentID}, field(t, rec, "decision", "based_on_assignments"))

	rec = c.json(http.MethodPost, base+"/publish", "editor-1", map[string]string{"doi": "10.1234/test-paper"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "published", field(t, rec, "manuscript", "status"))

	rec = c.do(http.MethodGet, base, "author-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "Published", got["status_label"])
	assert.Len(t, got["timeline"], 5)
	assert.Len(t, got["decisions"], 1)

	// Reviewers see the manuscript but not the editorial record.
	rec = c.do(http.MethodGet, base, "rev-a", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode(t, rec)
	assert.NotContains(t, got, "decisions")
	assert.NotContains(t, got, "timeline")

	rec = c.do(http.MethodGet, "/api/v1/manuscripts?status=Published", "editor-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = c.do(http.MethodGet, "/api/v1/manuscripts?status=bogus", "editor-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownManuscriptStatusCodes(t *testing.T) {
	c := newAPIClient(t)

	rec := c.do(http.MethodGet, "/api/v1/manuscripts/nope", "author-1", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/manuscripts/nope", "editor-1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/nothing-here", "editor-1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForbiddenBodyDoesNotRevealExistence(t *testing.T) {
	c := newAPIClient(t)
	rec := c.json(http.MethodPost, "/api/v1/manuscripts", "author-1", map[string]interface{}{
		"title":    "Test Paper",
		"abstract": "An abstract.",
		"section":  "Physics",
		"authors": []map[string]interface{}{
			{"name": "Ada Author", "email": "ada@example.org", "user_id": "author-1", "is_corresponding": true},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := field(t, rec, "manuscript", "id").(string)

	for _, suffix := range []string{"", "/submit"} {
		method := http.MethodGet
		if suffix != "" {
			method = http.MethodPost
		}
		foreign := c.json(method, "/api/v1/manuscripts/"+id+suffix, "author-2", nil)
		unknown := c.json(method, "/api/v1/manuscripts/no-such-id"+suffix, "author-2", nil)

		assert.Equal(t, http.StatusForbidden, foreign.Code, suffix)
		assert.Equal(t, unknown.Code, foreign.Code, suffix)
		assert.JSONEq(t, unknown.Body.String(), foreign.Body.String(), suffix)
	}
}
