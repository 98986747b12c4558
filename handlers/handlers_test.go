package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card_recommend/config"
	"card_recommend/models"
	"card_recommend/repository"
	"card_recommend/services"
)

const cardsAnswer = `Here you go: {"summary": "visa cards for groceries", "recommendations": [
	{"name": "Card A", "issuer": "Bank A", "network": "VISA", "annual_fee": "$0", "benefits": ["groceries"]},
	{"name": "Card B", "issuer": "Bank B", "network": "VISA", "annual_fee": "$95"},
	{"name": "Card C", "issuer": "Bank C", "network": "VISA", "annual_fee": "$0"}]}`

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *chi.Mux
	svc    *services.RecommendationService
	jobs   *repository.MemoryJobStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	inference := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		answer := cardsAnswer
		if strings.Contains(req["question"], "NEW QUESTION") {
			answer = "Card A has no annual fee."
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": answer})
	}))
	t.Cleanup(inference.Close)

	cfg := config.LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg.Inference.BaseURL = inference.URL
	cfg.Upload.Dir = t.TempDir()
	cfg.Upload.MaxSizeMB = 1
	cfg.RateLimit.Disabled = true

	jobs := repository.NewMemoryJobStore()
	history := repository.NewMemoryHistoryStore()
	uploads := repository.NewMemoryUploadStore()
	client := services.NewInferenceClient(cfg)
	svc, err := services.NewRecommendationService(context.Background(), cfg, jobs, history, uploads,
		services.NewDocumentExtractor(cfg, nil), client)
	require.NoError(t, err)

	router := chi.NewRouter()
	RegisterRoutes(router, Dependencies{
		Config:      cfg,
		Recommender: svc,
		Chat:        services.NewChatService(cfg, history, client),
		Uploads:     uploads,
	})
	return &testServer{router: router, svc: svc, jobs: jobs}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body []byte) (int, apiEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *testServer) postJSON(t *testing.T, path, body string) (int, apiEnvelope) {
	return s.do(t, http.MethodPost, path, "application/json", []byte(body))
}

func (s *testServer) upload(t *testing.T, name, content string) (int, apiEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return s.do(t, http.MethodPost, "/api/uploads", mw.FormDataContentType(), buf.Bytes())
}

func TestRecommendationFlow(t *testing.T) {
	s := newTestServer(t)

	status, env := s.upload(t, "statement.txt", "Trader Joe's 54.20\nWhole Foods 82.10")
	require.Equal(t, http.StatusOK, status, env.Message)
	var uploaded models.UploadResponse
	require.NoError(t, json.Unmarshal(env.Data, &uploaded))
	require.NotEmpty(t, uploaded.FileID)

	status, env = s.postJSON(t, "/api/recommendations",
		`{"filters": {"network": ["VISA"], "fee_range": "0-100", "rewards": ["groceries"]}, "file_id": "`+uploaded.FileID+`"}`)
	require.Equal(t, http.StatusAccepted, status, env.Message)
	var submitted models.GenerateResponse
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	assert.Equal(t, models.JobPending, submitted.Status)

	s.svc.Wait()

	status, env = s.do(t, http.MethodGet, "/api/recommendations/jobs/"+submitted.JobID, "", nil)
	require.Equal(t, http.StatusOK, status)
	var job models.Job
	require.NoError(t, json.Unmarshal(env.Data, &job))
	require.Equal(t, models.JobCompleted, job.Status, job.Error)
	require.NotNil(t, job.Result)
	assert.Equal(t, 3, job.Result.Count)
	assert.Equal(t, []string{"VISA"}, job.Result.Filters.Networks)
	assert.Equal(t, "0-100", job.Result.Filters.FeeRange)
	require.NotNil(t, job.Result.Document)
	assert.Equal(t, models.DocumentStatusExtracted, job.Result.Document.Status)

	status, env = s.do(t, http.MethodGet, "/api/recommendations/history?limit=5", "", nil)
	require.Equal(t, http.StatusOK, status)
	var history models.HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Equal(t, 1, history.Count)

	status, _ = s.do(t, http.MethodGet, "/api/recommendations/"+jsonNumber(job.Result.ID), "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.postJSON(t, "/api/chat", `{"result_id": `+jsonNumber(job.Result.ID)+`,
		"history": [{"role": "user", "content": "hi"}, {"role": "assistant", "content": "hello"}],
		"message": "Which card has no fee?"}`)
	require.Equal(t, http.StatusOK, status, env.Message)
	var chat models.ChatResponse
	require.NoError(t, json.Unmarshal(env.Data, &chat))
	assert.Equal(t, "Card A has no annual fee.", chat.Reply)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestSubmitRecommendation_Rejections(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]struct {
		body   string
		status int
		code   int
	}{
		"bad fee range":  {`{"filters": {"fee_range": "cheap"}}`, http.StatusBadRequest, models.CodeInvalidParams},
		"inverted range": {`{"filters": {"fee_range": "100-0"}}`, http.StatusBadRequest, models.CodeInvalidParams},
		"empty network":  {`{"filters": {"network": [""]}}`, http.StatusBadRequest, models.CodeInvalidParams},
		"unknown field":  {`{"filters": {}, "colour": "red"}`, http.StatusBadRequest, models.CodeInvalidParams},
		"not json":       {`filters=visa`, http.StatusBadRequest, models.CodeInvalidParams},
		"unknown file":   {`{"filters": {}, "file_id": "nope"}`, http.StatusNotFound, models.CodeFileNotFound},
	}
	for name, tc := range cases {
		status, env := s.postJSON(t, "/api/recommendations", tc.body)
		assert.Equal(t, tc.status, status, name)
		assert.Equal(t, tc.code, env.Code, name)
	}
	assert.Zero(t, s.jobs.Len(), "rejected requests must not create jobs")
}

func TestSubmitRecommendation_FeeRangeFieldNamed(t *testing.T) {
	s := newTestServer(t)
	_, env := s.postJSON(t, "/api/recommendations", `{"filters": {"fee_range": "abc"}}`)

	var data struct {
		Errors []FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Errors, 1)
	assert.Equal(t, "filters.fee_range", data.Errors[0].Field)
	assert.Equal(t, "feerange", data.Errors[0].Rule)
}

func TestLookups_NotFoundAndBadParams(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/recommendations/jobs/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeJobNotFound, env.Code)

	status, env = s.do(t, http.MethodGet, "/api/recommendations/42", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeResultNotFound, env.Code)

	status, _ = s.do(t, http.MethodGet, "/api/recommendations/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/recommendations/history?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.do(t, http.MethodGet, "/api/recommendations/history?limit=0", "", nil)
	assert.Equal(t, http.StatusOK, status)
	var history models.HistoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Zero(t, history.Count)
	assert.NotNil(t, history.Results)
}

func TestChat_Rejections(t *testing.T) {
	s := newTestServer(t)

	status, env := s.postJSON(t, "/api/chat", `{"result_id": 1, "history": [{"role": "system", "content": "x"}], "message": "hi"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeInvalidParams, env.Code)

	status, _ = s.postJSON(t, "/api/chat", `{"result_id": 1}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.postJSON(t, "/api/chat", `{"result_id": 99, "message": "hi"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeResultNotFound, env.Code)
}

func TestUpload_Rejections(t *testing.T) {
	s := newTestServer(t)

	status, env := s.upload(t, "malware.exe", "MZ")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeUploadRejected, env.Code)

	status, env = s.upload(t, "huge.txt", strings.Repeat("a", 3<<20))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, models.CodeUploadRejected, env.Code)

	status, env = s.do(t, http.MethodPost, "/api/uploads", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEqual(t, models.CodeSuccess, env.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.CodeSuccess, env.Code)
}
