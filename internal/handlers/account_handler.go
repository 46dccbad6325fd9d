package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/craftstudio/backend/internal/auth"
	"github.com/craftstudio/backend/internal/catalog"
	"github.com/craftstudio/backend/internal/models"
)

// BuyerStoreForAccount is the buyer sub-record access the account
// endpoints need.
type BuyerStoreForAccount interface {
	GetByAccountID(ctx context.Context, accountID int64) (*models.BuyerAccount, error)
	Create(ctx context.Context, accountID int64, freeTier *models.BuyerTier) (*models.BuyerAccount, error)
}

// DeveloperStoreForAccount mirrors BuyerStoreForAccount for developers.
type DeveloperStoreForAccount interface {
	GetByAccountID(ctx context.Context, accountID int64) (*models.DeveloperAccount, error)
	Create(ctx context.Context, accountID int64, freeTier *models.DeveloperTier) (*models.DeveloperAccount, error)
}

// AccountHandler serves /account endpoints.
type AccountHandler struct {
	Buyers     BuyerStoreForAccount
	Developers DeveloperStoreForAccount
	Tiers      *catalog.Catalog
	Logger     *slog.Logger
}

type roleSummary struct {
	Tier      string `json:"tier"`
	Remaining int    `json:"remaining"`
	Total     int    `json:"total"`
}

type meResponse struct {
	ID               int64        `json:"id"`
	DiscordID        string       `json:"discordId"`
	Username         string       `json:"username"`
	Email            string       `json:"email"`
	BuyerAccount     *roleSummary `json:"buyerAccount,omitempty"`
	DeveloperAccount *roleSummary `json:"developerAccount,omitempty"`
}

// Me handles GET /account/me: the private profile plus role summaries.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	acc := auth.AccountFromCtx(r.Context())
	if acc == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp := meResponse{ID: acc.ID, DiscordID: acc.DiscordID, Username: acc.Username, Email: acc.Email}

	if acc.Buyer != nil {
		b, err := acc.Buyer.Resolve(r.Context(), h.Buyers)
		if err != nil {
			h.Logger.Error("resolve buyer sub-record", "account_id", acc.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.BuyerAccount = &roleSummary{Tier: h.tierName(b.TierID, true), Remaining: b.RemainingCommissions, Total: b.TotalCommissions}
	}
	if acc.Developer != nil {
		d, err := acc.Developer.Resolve(r.Context(), h.Developers)
		if err != nil {
			h.Logger.Error("resolve developer sub-record", "account_id", acc.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.DeveloperAccount = &roleSummary{Tier: h.tierName(d.TierID, false), Remaining: d.RemainingBids, Total: d.TotalBids}
	}

	writeJSON(w, http.StatusOK, resp)
}

// SelectType handles GET /account/select-type?type=buyer|developer:
// creates the role sub-record on the free tier.
func (h *AccountHandler) SelectType(w http.ResponseWriter, r *http.Request) {
	acc := auth.AccountFromCtx(r.Context())
	if acc == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Holding either role blocks a second selection.
	if acc.IsBuyer() || acc.IsDeveloper() {
		respondError(w, http.StatusBadRequest, "account already has a type")
		return
	}

	switch r.URL.Query().Get("type") {
	case "buyer":
		b, err := h.Buyers.Create(r.Context(), acc.ID, h.Tiers.FreeBuyerTier())
		if err != nil {
			h.Logger.Error("create buyer sub-record", "account_id", acc.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, b)
	case "developer":
		d, err := h.Developers.Create(r.Context(), acc.ID, h.Tiers.FreeDeveloperTier())
		if err != nil {
			h.Logger.Error("create developer sub-record", "account_id", acc.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, d)
	default:
		respondError(w, http.StatusBadRequest, "type must be buyer or developer")
	}
}

func (h *AccountHandler) tierName(id int, buyer bool) string {
	if buyer {
		if t, ok := h.Tiers.BuyerTier(id); ok {
			return t.Name
		}
	} else {
		if t, ok := h.Tiers.DeveloperTier(id); ok {
			return t.Name
		}
	}
	return "unknown"
}
