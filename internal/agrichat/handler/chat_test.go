package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/agrichat/internal/model"
	"github.com/kart-io/agrichat/pkg/utils/json"
)

type fakeService struct {
	askAnswer string
	askErr    error
	sessions  map[string][]model.Message
}

func newFakeService() *fakeService {
	return &fakeService{
		askAnswer: "Late blight is caused by Phytophthora infestans.",
		sessions:  make(map[string][]model.Message),
	}
}

func (f *fakeService) Ask(ctx context.Context, sessionID, question string) (string, error) {
	if f.askErr != nil {
		return "", f.askErr
	}
	f.sessions[sessionID] = append(f.sessions[sessionID],
		model.Message{Role: model.RoleUser, Content: question},
		model.Message{Role: model.RoleAssistant, Content: f.askAnswer},
	)
	return f.askAnswer, nil
}

func (f *fakeService) NewSession(ctx context.Context) (string, error) {
	return "new-session-id", nil
}

func (f *fakeService) DeleteSession(ctx context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeService) History(ctx context.Context, sessionID string) ([]model.Message, error) {
	history := f.sessions[sessionID]
	if history == nil {
		return []model.Message{}, nil
	}
	return history, nil
}

func (f *fakeService) ListSessions(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.sessions))
	for id := range f.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"turns_total": uint64(1)}, nil
}

func newTestRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewChatHandler(svc, time.Minute)

	engine := gin.New()
	engine.GET("/healthz", h.Healthz)
	v1 := engine.Group("/v1/chat")
	v1.POST("/ask", h.Ask)
	v1.POST("/sessions", h.NewSession)
	v1.GET("/sessions", h.ListSessions)
	v1.DELETE("/sessions/:id", h.DeleteSession)
	v1.GET("/sessions/:id/history", h.History)
	v1.GET("/stats", h.Stats)
	return engine
}

func doRequest(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAskEndpoint(t *testing.T) {
	engine := newTestRouter(newFakeService())

	w := doRequest(engine, http.MethodPost, "/v1/chat/ask",
		`{"question":"What causes late blight?","session_id":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Late blight is caused by Phytophthora infestans.", resp.Answer)
	assert.Equal(t, "s1", resp.SessionID)
}

func TestAskEndpointMissingFields(t *testing.T) {
	engine := newTestRouter(newFakeService())

	for _, body := range []string{
		`{}`,
		`{"question":"no session"}`,
		`{"session_id":"no question"}`,
		`{"question":"   ","session_id":"s1"}`,
		`{"question":"valid","session_id":" "}`,
		`not json`,
	} {
		w := doRequest(engine, http.MethodPost, "/v1/chat/ask", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)

		var resp model.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
	}
}

func TestAskEndpointServiceFailure(t *testing.T) {
	svc := newFakeService()
	svc.askErr = assert.AnError
	engine := newTestRouter(svc)

	w := doRequest(engine, http.MethodPost, "/v1/chat/ask",
		`{"question":"What causes late blight?","session_id":"s1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAskEndpointTimeout(t *testing.T) {
	svc := newFakeService()
	svc.askErr = context.DeadlineExceeded
	engine := newTestRouter(svc)

	w := doRequest(engine, http.MethodPost, "/v1/chat/ask",
		`{"question":"What causes late blight?","session_id":"s1"}`)
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
}

func TestNewSessionEndpoint(t *testing.T) {
	engine := newTestRouter(newFakeService())

	w := doRequest(engine, http.MethodPost, "/v1/chat/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "new-session-id", resp.SessionID)
}

func TestDeleteSessionEndpoint(t *testing.T) {
	svc := newFakeService()
	engine := newTestRouter(svc)

	_, err := svc.Ask(context.Background(), "s1", "a question")
	require.NoError(t, err)

	w := doRequest(engine, http.MethodDelete, "/v1/chat/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Deleting an unknown session also succeeds
	w = doRequest(engine, http.MethodDelete, "/v1/chat/sessions/unknown", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	svc := newFakeService()
	engine := newTestRouter(svc)

	_, err := svc.Ask(context.Background(), "s1", "What causes late blight?")
	require.NoError(t, err)

	w := doRequest(engine, http.MethodGet, "/v1/chat/sessions/s1/history", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	require.Len(t, resp.History, 2)
	assert.Equal(t, model.RoleUser, resp.History[0].Role)
}

func TestHistoryEndpointUnknownSession(t *testing.T) {
	engine := newTestRouter(newFakeService())

	w := doRequest(engine, http.MethodGet, "/v1/chat/sessions/unknown/history", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.History)
}

func TestListSessionsEndpoint(t *testing.T) {
	svc := newFakeService()
	engine := newTestRouter(svc)

	_, err := svc.Ask(context.Background(), "s1", "q")
	require.NoError(t, err)

	w := doRequest(engine, http.MethodGet, "/v1/chat/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.SessionListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"s1"}, resp.Sessions)
}

func TestStatsEndpoint(t *testing.T) {
	engine := newTestRouter(newFakeService())

	w := doRequest(engine, http.MethodGet, "/v1/chat/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "turns_total")
}

func TestHealthzEndpoint(t *testing.T) {
	engine := newTestRouter(newFakeService())

	w := doRequest(engine, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
