package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hanasu-app/hanasu/internal/domain"
)

type fakeRepo struct {
	users map[string]*domain.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*domain.User)}
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
func (f *fakeRepo) ListPrompts(context.Context) ([]*domain.Prompt, error) { return nil, nil }
func (f *fakeRepo) UpsertPrompts(context.Context, []*domain.Prompt) error { return nil }
func (f *fakeRepo) Ping(context.Context) error                            { return nil }
func (f *fakeRepo) Close() error                                          { return nil }

func TestMiddlewareIssuesAnonIdentity(t *testing.T) {
	repo := newFakeRepo()
	var gotUserID string
	handler := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !isValidAnonID(gotUserID) {
		t.Fatalf("context user ID %q does not match the anon pattern", gotUserID)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == AnonCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("anon cookie not set")
	}
	if cookie.Value != gotUserID {
		t.Errorf("cookie value %q differs from context user ID %q", cookie.Value, gotUserID)
	}

	user := repo.users[gotUserID]
	if user == nil {
		t.Fatal("user row not created on first visit")
	}
	if user.CourseID != DefaultCourseID {
		t.Errorf("new user CourseID = %q, want %q", user.CourseID, DefaultCourseID)
	}
}

func TestMiddlewareKeepsExistingIdentity(t *testing.T) {
	repo := newFakeRepo()
	var got []string
	handler := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, UserIDFromContext(r.Context()))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range first.Result().Cookies() {
		req.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(got) != 2 || got[0] != got[1] {
		t.Errorf("identity not stable across requests: %v", got)
	}
	if len(repo.users) != 1 {
		t.Errorf("users created = %d, want 1", len(repo.users))
	}
}

func TestMiddlewareRejectsForgedCookie(t *testing.T) {
	repo := newFakeRepo()
	var gotUserID string
	handler := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "anon_../../etc/passwd"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotUserID == "anon_../../etc/passwd" {
		t.Error("forged cookie value accepted")
	}
	if !isValidAnonID(gotUserID) {
		t.Errorf("replacement ID %q does not match the anon pattern", gotUserID)
	}
}

func TestSanitizeSessionID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"tab-1", "tab-1"},
		{"  tab-1  ", "tab-1"},
		{"", DefaultSessionIDValue},
		{"bad session!", DefaultSessionIDValue},
	}
	for _, tt := range tests {
		if got := sanitizeSessionID(tt.in); got != tt.want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
