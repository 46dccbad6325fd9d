package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/craftstudio/backend/internal/models"
	"github.com/craftstudio/backend/internal/repository"
)

const stateCookieName = "oauth_state"

// AccountStore is the account access the login flow needs.
type AccountStore interface {
	GetByDiscordID(ctx context.Context, discordID string) (*models.Account, error)
	Create(ctx context.Context, discordID, username, email string) (*models.Account, error)
}

// Handler serves /auth/login and /auth/callback.
type Handler struct {
	accounts AccountStore
	discord  *Discord
	sessions *SessionStrategy
	log      *slog.Logger
}

func NewHandler(accounts AccountStore, discord *Discord, sessions *SessionStrategy, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{accounts: accounts, discord: discord, sessions: sessions, log: log}
}

// Login begins the OAuth flow: stash a state nonce and redirect to the
// Discord consent page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.discord.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the OAuth flow: exchange the code, fetch the
// Discord profile, find-or-create the local account, and issue the
// session cookie. The opaque bearer token is returned in the body for
// API clients.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		badRequest(w, "invalid oauth state")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		badRequest(w, "missing code")
		return
	}

	token, err := h.discord.Exchange(r.Context(), code)
	if err != nil {
		h.log.Warn("oauth exchange failed", "error", err)
		badRequest(w, "oauth exchange failed")
		return
	}
	user, err := h.discord.FetchUser(r.Context(), token)
	if err != nil {
		h.log.Warn("discord profile fetch failed", "error", err)
		badRequest(w, "profile fetch failed")
		return
	}
	if user.Email == "" || !user.Verified || user.Bot {
		badRequest(w, "account must have a verified email and not be a bot")
		return
	}

	account, err := h.accounts.GetByDiscordID(r.Context(), user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		account, err = h.accounts.Create(r.Context(), user.ID, user.Username, user.Email)
	}
	if err != nil {
		h.log.Error("account lookup/create failed", "discord_id", user.ID, "error", err)
		http.Error(w, `{"success":false,"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	cookie, err := h.sessions.IssueCookie(account, time.Now())
	if err != nil {
		h.log.Error("session issue failed", "account_id", account.ID, "error", err)
		http.Error(w, `{"success":false,"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, cookie)

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"success":true,"accessToken":%q}`, account.AccessToken)
}

func badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, `{"success":false,"error":%q}`, msg)
}
