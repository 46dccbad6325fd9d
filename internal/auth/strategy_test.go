package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/craftstudio/backend/internal/models"
	"github.com/craftstudio/backend/internal/repository"
)

type stubAccounts struct {
	byID    map[int64]*models.Account
	byToken map[string]*models.Account
}

func newStubAccounts(accs ...*models.Account) *stubAccounts {
	s := &stubAccounts{byID: make(map[int64]*models.Account), byToken: make(map[string]*models.Account)}
	for _, a := range accs {
		s.byID[a.ID] = a
		s.byToken[a.AccessToken] = a
	}
	return s
}

func (s *stubAccounts) GetByID(_ context.Context, id int64) (*models.Account, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (s *stubAccounts) GetByAccessToken(_ context.Context, token string) (*models.Account, error) {
	a, ok := s.byToken[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

var testSecret = []byte("test-secret")

func sessionRequest(t *testing.T, s *SessionStrategy, acc *models.Account) *http.Request {
	t.Helper()
	cookie, err := s.IssueCookie(acc, time.Now())
	if err != nil {
		t.Fatalf("IssueCookie: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/account/me", nil)
	req.AddCookie(cookie)
	return req
}

// =====================================================================
// Session strategy
// =====================================================================

func TestSessionStrategy_ValidCookie(t *testing.T) {
	acc := &models.Account{ID: 7, AccessToken: "tok-7"}
	s := NewSessionStrategy(newStubAccounts(acc), testSecret)

	res := s.Authenticate(context.Background(), sessionRequest(t, s, acc))

	if res.Status != StatusAuthenticated {
		t.Fatalf("status = %v, want authenticated", res.Status)
	}
	if res.Account.ID != 7 {
		t.Errorf("account id = %d, want 7", res.Account.ID)
	}
}

func TestSessionStrategy_NoCookieSkips(t *testing.T) {
	s := NewSessionStrategy(newStubAccounts(), testSecret)
	res := s.Authenticate(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if res.Status != StatusSkipped {
		t.Fatalf("status = %v, want skipped", res.Status)
	}
}

func TestSessionStrategy_RotatedTokenChallenges(t *testing.T) {
	acc := &models.Account{ID: 7, AccessToken: "tok-7"}
	s := NewSessionStrategy(newStubAccounts(acc), testSecret)
	req := sessionRequest(t, s, acc)

	// Token rotated after the cookie was issued.
	acc.AccessToken = "tok-7-rotated"

	res := s.Authenticate(context.Background(), req)
	if res.Status != StatusChallenge {
		t.Fatalf("status = %v, want challenge", res.Status)
	}

	rec := httptest.NewRecorder()
	res.Challenge(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("challenge status = %d, want 302 redirect to login", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/auth/login" {
		t.Errorf("redirect location = %q, want /auth/login", loc)
	}
}

func TestSessionStrategy_GarbageCookieChallenges(t *testing.T) {
	s := NewSessionStrategy(newStubAccounts(), testSecret)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-jwt"})

	res := s.Authenticate(context.Background(), req)
	if res.Status != StatusChallenge {
		t.Fatalf("status = %v, want challenge", res.Status)
	}
}

// =====================================================================
// Bearer strategy
// =====================================================================

func TestBearerStrategy_ValidToken(t *testing.T) {
	acc := &models.Account{ID: 7, AccessToken: "2f0c54a9-07a6-44c8-a5f4-3f2a4f2b7e01"}
	s := NewBearerStrategy(newStubAccounts(acc), "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+acc.AccessToken)

	res := s.Authenticate(context.Background(), req)
	if res.Status != StatusAuthenticated || res.Account.ID != 7 {
		t.Fatalf("got %v/%v, want authenticated account 7", res.Status, res.Account)
	}
}

func TestBearerStrategy_NoHeaderSkips(t *testing.T) {
	s := NewBearerStrategy(newStubAccounts(), "")
	res := s.Authenticate(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if res.Status != StatusSkipped {
		t.Fatalf("status = %v, want skipped", res.Status)
	}
}

func TestBearerStrategy_UnknownTokenChallenges(t *testing.T) {
	s := NewBearerStrategy(newStubAccounts(), "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")

	res := s.Authenticate(context.Background(), req)
	if res.Status != StatusChallenge {
		t.Fatalf("status = %v, want challenge", res.Status)
	}

	rec := httptest.NewRecorder()
	res.Challenge(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("challenge status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("missing WWW-Authenticate challenge header")
	}
}

func TestBearerStrategy_TestTokenBypass(t *testing.T) {
	s := NewBearerStrategy(newStubAccounts(), "letmein")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer letmein")

	res := s.Authenticate(context.Background(), req)
	if res.Status != StatusAuthenticated {
		t.Fatalf("status = %v, want authenticated", res.Status)
	}
	acc := res.Account
	if acc.ID != TestAccountID {
		t.Errorf("account id = %d, want %d", acc.ID, TestAccountID)
	}
	if !acc.IsBuyer() || !acc.IsDeveloper() {
		t.Error("test account should carry both roles")
	}
	b, err := acc.Buyer.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("resolve primed buyer: %v", err)
	}
	if b.RemainingCommissions != 5 {
		t.Errorf("buyer quota = %d, want primed 5", b.RemainingCommissions)
	}
}

// =====================================================================
// RequireAccount ordering
// =====================================================================

func TestRequireAccount_SessionWinsOverBearer(t *testing.T) {
	acc := &models.Account{ID: 7, AccessToken: "tok-7"}
	accounts := newStubAccounts(acc)
	session := NewSessionStrategy(accounts, testSecret)
	bearer := NewBearerStrategy(accounts, "")

	var seen *models.Account
	h := RequireAccount(session, bearer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AccountFromCtx(r.Context())
	}))

	req := sessionRequest(t, session, acc)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.ID != 7 {
		t.Fatalf("principal = %v, want account 7 via session", seen)
	}
}

func TestRequireAccount_AllSkippedIs401(t *testing.T) {
	accounts := newStubAccounts()
	h := RequireAccount(NewSessionStrategy(accounts, testSecret), NewBearerStrategy(accounts, ""))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler ran without credentials")
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAccount_SessionChallengeDoesNotFallThrough(t *testing.T) {
	acc := &models.Account{ID: 7, AccessToken: "tok-7"}
	accounts := newStubAccounts(acc)
	session := NewSessionStrategy(accounts, testSecret)
	bearer := NewBearerStrategy(accounts, "")

	h := RequireAccount(session, bearer)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler ran with a bad session cookie")
	}))

	// Bad cookie but a valid bearer token: the cookie still wins and
	// redirects to login.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	req.Header.Set("Authorization", "Bearer tok-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 login redirect", rec.Code)
	}
}
