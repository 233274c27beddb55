package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hanasu-app/hanasu/internal/domain"
	"github.com/hanasu-app/hanasu/internal/identity"
	"github.com/hanasu-app/hanasu/internal/practice"
	"github.com/hanasu-app/hanasu/internal/transcript"
)

type fakeRepo struct {
	users   map[string]*domain.User
	prompts []*domain.Prompt
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	return f.users[userID], nil
}
func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.users[user.UserID] = user
	return nil
}
func (f *fakeRepo) UpdateLastSeen(context.Context, string, time.Time) error { return nil }
func (f *fakeRepo) UpsertScore(context.Context, *domain.ScoreRecord) error  { return nil }
func (f *fakeRepo) GetScore(context.Context, string, string) (*domain.ScoreRecord, error) {
	return nil, nil
}
func (f *fakeRepo) ListScores(context.Context, string) ([]*domain.ScoreRecord, error) {
	return nil, nil
}
func (f *fakeRepo) ListPrompts(context.Context) ([]*domain.Prompt, error) { return f.prompts, nil }
func (f *fakeRepo) UpsertPrompts(context.Context, []*domain.Prompt) error { return nil }
func (f *fakeRepo) Ping(context.Context) error                            { return nil }
func (f *fakeRepo) Close() error                                          { return nil }

type repoCatalog struct {
	repo *fakeRepo
}

func (c repoCatalog) Prompts(ctx context.Context) ([]*domain.Prompt, error) {
	return c.repo.ListPrompts(ctx)
}

const testUserID = "anon_0123456789abcdef0123456789abcdef"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := &fakeRepo{
		users: map[string]*domain.User{
			testUserID: {UserID: testUserID, Username: "anon-9abcdef", CourseID: "free"},
		},
		prompts: []*domain.Prompt{
			{ID: "t1", Level: "初級", Type: "単体", Sub: "1", Text: "好きな食べ物"},
			{ID: "t2", Level: "初級", Type: "単体", Sub: "2", Text: "休みの日"},
		},
	}
	mgr := practice.NewManager(repo, repoCatalog{repo: repo}, transcript.IdentityNormalizer{})
	handler := NewPracticeHandler(NewHandler(repo, mgr, ""))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(identity.WithUserID(req.Context(), testUserID)))
		})
	})
	handler.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestGetPracticeSnapshot(t *testing.T) {
	r := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/api/practice/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body["state"] != "idle" {
		t.Errorf("state = %v, want idle", body["state"])
	}
	prompt, ok := body["prompt"].(map[string]any)
	if !ok || prompt["id"] != "t1" {
		t.Errorf("prompt = %v, want seeded t1", body["prompt"])
	}
}

func TestStartWithoutCaptureRefused(t *testing.T) {
	r := newTestRouter(t)

	// No WebSocket hello has advertised capture, so Start must refuse and
	// the session must stay startable.
	for i := 0; i < 2; i++ {
		rec, body := doJSON(t, r, http.MethodPost, "/api/practice/start", nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("attempt %d: status = %d, want 409", i, rec.Code)
		}
		if body["error"] != "capture_unavailable" {
			t.Errorf("attempt %d: error = %v", i, body["error"])
		}
	}
}

func TestJudgeWithoutAttempt(t *testing.T) {
	r := newTestRouter(t)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/practice/judge", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestSetFilterValidation(t *testing.T) {
	r := newTestRouter(t)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/practice/filter",
		map[string]string{"level": "10秒スピーチチャレンジ", "type": "二択"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("mismatched pair: status = %d, want 400", rec.Code)
	}

	rec, body := doJSON(t, r, http.MethodPost, "/api/practice/filter",
		map[string]string{"level": "初級", "type": "単体", "mode": "sequential"})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid filter: status = %d, body %s", rec.Code, rec.Body.String())
	}
	prompt, ok := body["prompt"].(map[string]any)
	if !ok || prompt["id"] != "t1" {
		t.Errorf("filtered prompt = %v", body["prompt"])
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	r := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET settings: status = %d", rec.Code)
	}
	if body["maxTime"] != float64(60) {
		t.Errorf("default maxTime = %v, want 60", body["maxTime"])
	}

	rec, body = doJSON(t, r, http.MethodPut, "/api/settings", map[string]any{
		"maxTime": 10, "timerType": "countdown", "forceEnd": "on", "transcript": "on",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT settings: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body["maxTime"] != float64(10) || body["timerType"] != "countdown" {
		t.Errorf("updated settings = %v", body)
	}

	rec, _ = doJSON(t, r, http.MethodPut, "/api/settings", map[string]any{
		"maxTime": 60, "timerType": "sideways",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid timerType: status = %d, want 400", rec.Code)
	}
}

func TestGetConfigListsVocabulary(t *testing.T) {
	r := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/api/config", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	levels, ok := body["levels"].([]any)
	if !ok || len(levels) != 8 {
		t.Errorf("levels = %v, want 8 entries", body["levels"])
	}
	limits, ok := body["limits"].(map[string]any)
	if !ok || limits["lockForceCutoff"] != true {
		t.Errorf("free course limits = %v, want locked cutoff", body["limits"])
	}
}

func TestGetMe(t *testing.T) {
	r := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/api/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["user_id"] != testUserID || body["course_id"] != "free" {
		t.Errorf("me = %v", body)
	}
}
