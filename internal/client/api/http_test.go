package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/client/session"
	"github.com/dmitrijs2005/anonify/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(srv.URL+"/", nil, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com", nil, 0)
	require.Error(t, err)
	_, err = NewHTTPClient("://", nil, 0)
	require.Error(t, err)
}

func TestLogin_PostsCredentials(t *testing.T) {
	var got models.Credentials
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"jwt_token": "tok"})
	}))

	resp, err := c.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, models.Credentials{Username: "alice", Password: "pw"}, got)
}

func TestRenameChat_SendsOnlyTitle(t *testing.T) {
	var raw []byte
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/chats/42", r.URL.Path)
		raw, _ = io.ReadAll(r.Body)
		writeJSON(w, http.StatusOK, map[string]any{"id": 42, "title": "Plates", "created_at": "2026-10-18T10:00:00"})
	}))

	chat, err := c.RenameChat(context.Background(), 42, "Plates")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Plates"}`, string(raw))
	assert.Equal(t, int64(42), chat.ID)
	assert.Equal(t, "Plates", chat.Title)
}

func TestListMessagesAndSend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chats/7/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "chat_id": 7, "sender": "user", "content": "hi", "created_at": "2026-10-18T10:00:00"},
		})
	})
	mux.HandleFunc("POST /chats/7/messages", func(w http.ResponseWriter, r *http.Request) {
		var in models.NewMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, models.NewMessage{Sender: models.SenderUser, Content: "hello"}, in)
		writeJSON(w, http.StatusCreated, map[string]any{"id": 2, "chat_id": 7, "sender": "user", "content": "hello", "created_at": "2026-10-18T10:00:01"})
	})
	c, _ := newTestClient(t, mux)

	msgs, err := c.ListMessages(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)

	m, err := c.SendMessage(context.Background(), 7, models.NewMessage{Sender: models.SenderUser, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.ID)
}

func TestRedact_SendsMultipartAndDecodesDetections(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/redact", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "0.25", r.FormValue("confidence_threshold"))
		assert.Equal(t, "true", r.FormValue("return_image"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "car.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		assert.Equal(t, []byte("PNGDATA"), data)

		writeJSON(w, http.StatusOK, map[string]any{
			"task_id":          "t-1",
			"status":           "success",
			"detections_count": 2,
			"detections": []map[string]float64{
				{"x1": 1, "y1": 2, "x2": 3, "y2": 4, "confidence": 0.873},
				{"x1": 5, "y1": 6, "x2": 7, "y2": 8, "confidence": 0.5},
			},
			"redacted_image_base64": "aGk=",
		})
	}))

	res, err := c.Redact(context.Background(),
		models.Upload{Name: "car.png", ContentType: "image/png", Data: []byte("PNGDATA")},
		models.RedactOptions{ConfidenceThreshold: 0.25, ReturnImage: true})
	require.NoError(t, err)

	want := &models.DetectionResult{
		TaskID:          "t-1",
		Status:          "success",
		DetectionsCount: 2,
		Detections: []models.BoundingBox{
			{X1: 1, Y1: 2, X2: 3, Y2: 4, Confidence: 0.873},
			{X1: 5, Y1: 6, X2: 7, Y2: 8, Confidence: 0.5},
		},
		RedactedImageBase64: "aGk=",
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code   int
		body   string
		target error
		detail string
	}{
		{code: http.StatusUnauthorized, body: `{"detail":"Invalid credentials"}`, target: common.ErrUnauthorized, detail: "Invalid credentials"},
		{code: http.StatusForbidden, body: `{"detail":"Not authenticated"}`, target: common.ErrForbidden, detail: "Not authenticated"},
		{code: http.StatusNotFound, body: `{"detail":"Chat not found"}`, target: common.ErrNotFound, detail: "Chat not found"},
		{code: http.StatusUnprocessableEntity, body: `{"detail":[{"loc":["body","title"]}]}`, target: common.ErrValidation, detail: `[{"loc":["body","title"]}]`},
		{code: http.StatusBadGateway, body: `upstream down`, target: common.ErrUnavailable, detail: "upstream down"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := c.GetChat(context.Background(), 1)
			require.ErrorIs(t, err, tt.target)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.detail, se.Detail)
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, nil, 0)
	require.NoError(t, err)

	_, err = c.ListChats(context.Background())
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestMalformedBody(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	}))

	_, err := c.ListChats(context.Background())
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewHTTPClient(srv.URL, nil, 50*time.Millisecond)
	require.NoError(t, err)

	err = c.Ping(context.Background())
	require.ErrorIs(t, err, common.ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPing(t *testing.T) {
	status := "ok"
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}))

	require.NoError(t, c.Ping(context.Background()))

	status = "degraded"
	require.ErrorIs(t, c.Ping(context.Background()), common.ErrUnavailable)
}

func TestEntitiesAndTaskLog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /entities", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"entities": {"name", "email"}})
	})
	mux.HandleFunc("GET /logs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "t-1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Task not found"})
			return
		}
		writeJSON(w, http.StatusOK, models.TaskLog{Status: "success", Details: "done"})
	})
	c, _ := newTestClient(t, mux)

	ents, err := c.Entities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email"}, ents)

	log, err := c.TaskLog(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, &models.TaskLog{Status: "success", Details: "done"}, log)

	_, err = c.TaskLog(context.Background(), "t-2")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGuardedClient_401ResetsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, []models.Chat{})
	}))
	defer srv.Close()

	store := session.NewMemoryStore("stale")
	var cleared []session.Reason
	store.OnCleared(func(r session.Reason) { cleared = append(cleared, r) })

	c, err := NewHTTPClient(srv.URL, session.NewGuard(store, nil, nil, nil), 0)
	require.NoError(t, err)

	_, err = c.ListChats(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Empty(t, store.Token())
	assert.Equal(t, []session.Reason{session.ReasonUnauthorized}, cleared)

	require.NoError(t, store.Set(context.Background(), "good"))
	chats, err := c.ListChats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestGuardedClient_RetryOfOneRequestResetsOnce(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	}))
	defer srv.Close()

	store := session.NewMemoryStore("tok-1")
	var cleared []session.Reason
	store.OnCleared(func(r session.Reason) { cleared = append(cleared, r) })

	c, err := NewHTTPClient(srv.URL, session.NewGuard(store, nil, nil, nil), 0)
	require.NoError(t, err)

	ctx := session.WithAttempt(context.Background())
	_, err = c.ListChats(ctx)
	require.ErrorIs(t, err, common.ErrUnauthorized)

	require.NoError(t, store.Set(context.Background(), "tok-2"))
	_, err = c.ListChats(ctx)
	require.ErrorIs(t, err, common.ErrUnauthorized)

	mu.Lock()
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2"}, seen)
	mu.Unlock()
	assert.Equal(t, []session.Reason{session.ReasonUnauthorized}, cleared)
	assert.Equal(t, "tok-2", store.Token())

	_, err = c.ListChats(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Empty(t, store.Token())
	assert.Len(t, cleared, 2)
}
