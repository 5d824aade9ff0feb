package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contrata-chat/internal/domain"
	"contrata-chat/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryCall struct {
	solicitudID int64
	kind        domain.ChatKind
	beforeID    int64
	limit       int
	userID      int64
}

type fakeQueries struct {
	messages     []domain.Message
	unread       int
	participants []services.ParticipantView
	err          error

	calls []queryCall
}

func (f *fakeQueries) History(ctx context.Context, solicitudID int64, kind domain.ChatKind, beforeID int64, limit int) ([]domain.Message, error) {
	f.calls = append(f.calls, queryCall{solicitudID: solicitudID, kind: kind, beforeID: beforeID, limit: limit})
	return f.messages, f.err
}

func (f *fakeQueries) MarkAllRead(ctx context.Context, solicitudID int64, kind domain.ChatKind, userID int64) (*domain.Chat, []domain.Participant, error) {
	f.calls = append(f.calls, queryCall{solicitudID: solicitudID, kind: kind, userID: userID})
	return nil, nil, f.err
}

func (f *fakeQueries) UnreadCount(ctx context.Context, solicitudID int64, kind domain.ChatKind, userID int64) (int, error) {
	f.calls = append(f.calls, queryCall{solicitudID: solicitudID, kind: kind, userID: userID})
	return f.unread, f.err
}

func (f *fakeQueries) ChatParticipants(ctx context.Context, solicitudID int64, kind domain.ChatKind) ([]services.ParticipantView, error) {
	f.calls = append(f.calls, queryCall{solicitudID: solicitudID, kind: kind})
	return f.participants, f.err
}

func newTestRouter(q ChatQueries) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewChatHandler(q)
	r := gin.New()
	chat := r.Group("/chat")
	{
		chat.GET("/:requestId/:kind", h.History)
		chat.POST("/:requestId/:kind/mark-read", h.MarkRead)
		chat.GET("/:requestId/:kind/unread", h.Unread)
		chat.GET("/:requestId/:kind/participants", h.Participants)
	}
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return w, payload
}

func TestHistoryReturnsMessages(t *testing.T) {
	q := &fakeQueries{
		messages: []domain.Message{
			{ID: 2, SenderID: 1, Content: domain.TextContent("second")},
			{ID: 1, SenderID: 2, Content: domain.TextContent("first")},
		},
	}
	r := newTestRouter(q)

	w, payload := doRequest(t, r, http.MethodGet, "/chat/42/sst?userId=1", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, payload["success"])

	data := payload["data"].(map[string]any)
	messages := data["messages"].([]any)
	require.Len(t, messages, 2)

	first := messages[0].(map[string]any)
	assert.Equal(t, float64(2), first["id"])
	assert.Equal(t, true, first["isSender"])
	second := messages[1].(map[string]any)
	assert.Equal(t, false, second["isSender"])

	require.Len(t, q.calls, 1)
	assert.Equal(t, int64(42), q.calls[0].solicitudID)
	assert.Equal(t, domain.KindSST, q.calls[0].kind)
	assert.Equal(t, 50, q.calls[0].limit)
}

func TestHistoryPassesCursorAndLimit(t *testing.T) {
	q := &fakeQueries{}
	r := newTestRouter(q)

	w, _ := doRequest(t, r, http.MethodGet, "/chat/42/sst?before=100&limit=20", "")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, q.calls, 1)
	assert.Equal(t, int64(100), q.calls[0].beforeID)
	assert.Equal(t, 20, q.calls[0].limit)
}

func TestHistoryEmptyChat(t *testing.T) {
	r := newTestRouter(&fakeQueries{})

	w, payload := doRequest(t, r, http.MethodGet, "/chat/42/sst", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := payload["data"].(map[string]any)
	assert.Empty(t, data["messages"])
}

func TestHistoryBadInputs(t *testing.T) {
	for _, target := range []string{
		"/chat/abc/sst",
		"/chat/0/sst",
		"/chat/42/billing",
		"/chat/42/sst?before=abc",
		"/chat/42/sst?limit=0",
		"/chat/42/sst?limit=abc",
		"/chat/42/sst?userId=abc",
	} {
		q := &fakeQueries{}
		r := newTestRouter(q)
		w, payload := doRequest(t, r, http.MethodGet, target, "")

		assert.Equal(t, http.StatusBadRequest, w.Code, "target %s", target)
		assert.Equal(t, false, payload["success"], "target %s", target)
		assert.Equal(t, "INVALID_REQUEST", payload["code"], "target %s", target)
		assert.Empty(t, q.calls, "target %s", target)
	}
}

func TestHistoryServiceFailure(t *testing.T) {
	q := &fakeQueries{err: assert.AnError}
	r := newTestRouter(q)

	w, payload := doRequest(t, r, http.MethodGet, "/chat/42/sst", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "REQUEST_FAILED", payload["code"])
}

func TestMarkRead(t *testing.T) {
	q := &fakeQueries{}
	r := newTestRouter(q)

	w, payload := doRequest(t, r, http.MethodPost, "/chat/42/interventor/mark-read", `{"userId":7}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, payload["success"])
	require.Len(t, q.calls, 1)
	assert.Equal(t, int64(42), q.calls[0].solicitudID)
	assert.Equal(t, domain.KindInterventor, q.calls[0].kind)
	assert.Equal(t, int64(7), q.calls[0].userID)
}

func TestMarkReadRequiresUserID(t *testing.T) {
	q := &fakeQueries{}
	r := newTestRouter(q)

	w, payload := doRequest(t, r, http.MethodPost, "/chat/42/sst/mark-read", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", payload["code"])
	assert.Empty(t, q.calls)
}

func TestUnread(t *testing.T) {
	q := &fakeQueries{unread: 3}
	r := newTestRouter(q)

	w, payload := doRequest(t, r, http.MethodGet, "/chat/42/sst/unread?userId=7", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := payload["data"].(map[string]any)
	assert.Equal(t, float64(3), data["unreadCount"])
}

func TestUnreadRequiresUserID(t *testing.T) {
	q := &fakeQueries{}
	r := newTestRouter(q)

	w, _ := doRequest(t, r, http.MethodGet, "/chat/42/sst/unread", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, q.calls)
}

func TestParticipants(t *testing.T) {
	q := &fakeQueries{participants: []services.ParticipantView{
		{UserID: 1, Username: "contratista.uno", RoleLabel: domain.RoleContratista},
		{UserID: 2, Username: "sst.uno", RoleLabel: domain.RoleSST, UnreadCount: 2},
	}}
	r := newTestRouter(q)

	w, payload := doRequest(t, r, http.MethodGet, "/chat/42/sst/participants", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := payload["data"].(map[string]any)
	participants := data["participants"].([]any)
	require.Len(t, participants, 2)
	second := participants[1].(map[string]any)
	assert.Equal(t, "sst.uno", second["username"])
	assert.Equal(t, float64(2), second["unreadCount"])
}

func TestParticipantsMissingChatIsEmptyList(t *testing.T) {
	r := newTestRouter(&fakeQueries{})

	w, payload := doRequest(t, r, http.MethodGet, "/chat/42/soporte/participants", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := payload["data"].(map[string]any)
	list, ok := data["participants"].([]any)
	require.True(t, ok)
	assert.Empty(t, list)
}
