package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/workflow/internal/cloudsync"
	"github.com/benvon/workflow/internal/models"
	"github.com/benvon/workflow/internal/notice"
	"github.com/benvon/workflow/internal/remote"
	"github.com/benvon/workflow/internal/services/ai"
	"github.com/benvon/workflow/internal/store"
	"github.com/benvon/workflow/internal/workspace"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type stubAssistant struct {
	rewrite string
	items   []string
}

func (s *stubAssistant) ImproveNote(_ context.Context, text string) ai.TextResult {
	if s.rewrite == "" {
		return ai.TextResult{Text: text, Outcome: ai.OutcomeFallback}
	}
	return ai.TextResult{Text: s.rewrite, Outcome: ai.OutcomeOK}
}

func (s *stubAssistant) SuggestTasks(context.Context, string) ai.ListResult {
	if s.items == nil {
		return ai.ListResult{Items: []string{}, Outcome: ai.OutcomeFallback}
	}
	return ai.ListResult{Items: s.items, Outcome: ai.OutcomeOK}
}

func (s *stubAssistant) AnalyzeTasks(_ context.Context, tasks []models.Task) ai.TextResult {
	return ai.TextResult{Text: fmt.Sprintf("%d tasks reviewed", len(tasks)), Outcome: ai.OutcomeOK}
}

type fakeSessions struct {
	mu        sync.Mutex
	beginErr  error
	complete  chan error
	signOuts  int
	completed int
}

func (f *fakeSessions) BeginDeviceLogin(context.Context) (*remote.DeviceLogin, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &remote.DeviceLogin{
		UserCode:        "WDJB-MJHT",
		VerificationURL: "https://www.google.com/device",
		ExpiresAt:       time.Now().Add(time.Minute),
	}, nil
}

func (f *fakeSessions) CompleteDeviceLogin(ctx context.Context, _ *remote.DeviceLogin) error {
	select {
	case err := <-f.complete:
		f.mu.Lock()
		f.completed++
		f.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSessions) SignOut(context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	return nil
}

type testServer struct {
	router   *mux.Router
	ws       *workspace.Workspace
	remote   *remote.Memory
	orch     *cloudsync.Orchestrator
	notices  *notice.Board
	asst     *stubAssistant
	sessions *fakeSessions
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	kv := store.NewMemoryKV()
	notices := notice.NewBoard(time.Minute)
	asst := &stubAssistant{}
	var seq atomic.Int32

	ws := workspace.New(store.DefaultState(), workspace.Options{
		Store:     store.NewLocalStore(kv, log),
		Assistant: asst,
		Notices:   notices,
		Logger:    log,
		NewID:     func() string { return fmt.Sprintf("id-%d", seq.Add(1)) },
	})
	mem := remote.NewMemory()
	orch := cloudsync.New(ws, mem, notices, log, cloudsync.Config{Debounce: time.Hour})
	ws.SetListener(orch)
	ws.Reconcile(context.Background())
	orch.MarkReady()

	sessions := &fakeSessions{complete: make(chan error, 1)}
	syncHandler := NewSyncHandler(orch, sessions, notices, log)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", NewHealthChecker(kv, mem).HealthCheck).Methods("GET")
	NewOpenAPIHandler().RegisterRoutes(r)
	api := r.PathPrefix("/api/v1").Subrouter()
	NewTimesheetHandler(ws, log).RegisterRoutes(api)
	NewTaskHandler(ws, log).RegisterRoutes(api)
	NewNoteHandler(ws, log).RegisterRoutes(api)
	NewSettingsHandler(ws, log).RegisterRoutes(api)
	syncHandler.RegisterRoutes(api)

	t.Cleanup(func() {
		syncHandler.Close()
		orch.Close()
		notices.Close()
	})
	return &testServer{router: r, ws: ws, remote: mem, orch: orch, notices: notices, asst: asst, sessions: sessions}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

// expect performs the request, checks the status and decodes data into out
func (s *testServer) expect(t *testing.T, method, path, body string, status int, out any) envelope {
	t.Helper()
	w, env := s.do(t, method, path, body)
	if w.Code != status {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, status, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("%s %s: failed to decode data: %v", method, path, err)
		}
	}
	return env
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
