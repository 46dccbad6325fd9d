package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/craftstudio/backend/internal/auth"
	"github.com/craftstudio/backend/internal/catalog"
	"github.com/craftstudio/backend/internal/models"
	"github.com/craftstudio/backend/internal/repository"
)

// CommissionStoreForDeveloper is the commission access the developer
// endpoints need.
type CommissionStoreForDeveloper interface {
	GetByID(ctx context.Context, id int64) (*models.Commission, error)
	ListAvailable(ctx context.Context, q repository.AvailableQuery) ([]*models.Commission, error)
	ListInProgress(ctx context.Context, developerID int64, page, pageSize int) ([]*models.Commission, error)
}

// BidStoreForDeveloper is the bid access the developer endpoints need.
type BidStoreForDeveloper interface {
	CreateTx(ctx context.Context, tx pgx.Tx, b *models.Bid) error
}

// DeveloperQuotaStore locks and updates the developer quota counters.
type DeveloperQuotaStore interface {
	GetByAccountID(ctx context.Context, accountID int64) (*models.DeveloperAccount, error)
	GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID int64) (*models.DeveloperAccount, error)
	UpdateBidCountTx(ctx context.Context, tx pgx.Tx, accountID int64, remaining, total int) error
}

// DeveloperHandler serves /developer endpoints.
type DeveloperHandler struct {
	Pool        TxBeginner
	Commissions CommissionStoreForDeveloper
	Bids        BidStoreForDeveloper
	Developers  DeveloperQuotaStore
	Tiers       *catalog.Catalog
	Logger      *slog.Logger
}

// AvailableCommissions handles GET /developer/available-commissions.
// Results are limited to bidding postings whose fixed or hourly offer
// fits the caller's tier ceilings.
func (h *DeveloperHandler) AvailableCommissions(w http.ResponseWriter, r *http.Request) {
	acc, _, tier, ok := h.requireDeveloper(w, r)
	if !ok {
		return
	}

	page, pageSize := parsePage(r)
	q := repository.AvailableQuery{
		Search:      r.URL.Query().Get("searchQuery"),
		FixedLimit:  tier.FixedOfferLimit,
		HourlyLimit: tier.HourlyOfferLimit,
		Sort:        models.ParseCommissionSort(r.URL.Query().Get("sortFunction")),
		Invert:      r.URL.Query().Get("invertSort") == "true",
		Page:        page,
		PageSize:    pageSize,
	}
	list, err := h.Commissions.ListAvailable(r.Context(), q)
	if err != nil {
		h.Logger.Error("list available commissions", "account_id", acc.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []*models.Commission{}
	}
	writeJSON(w, http.StatusOK, list)
}

// InProgressCommissions handles GET /developer/in-progress-commissions.
func (h *DeveloperHandler) InProgressCommissions(w http.ResponseWriter, r *http.Request) {
	acc, _, _, ok := h.requireDeveloper(w, r)
	if !ok {
		return
	}
	page, pageSize := parsePage(r)
	list, err := h.Commissions.ListInProgress(r.Context(), acc.ID, page, pageSize)
	if err != nil {
		h.Logger.Error("list in-progress commissions", "account_id", acc.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []*models.Commission{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetCommission handles GET /developer/commission/{id}. Callers other
// than the assigned developer only see postings they could actually bid
// on; everything else is a 404, indistinguishable from absence.
func (h *DeveloperHandler) GetCommission(w http.ResponseWriter, r *http.Request) {
	acc, dev, tier, ok := h.requireDeveloper(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid commission id")
		return
	}

	c, err := h.Commissions.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "commission not found")
		return
	}
	if c.Developer != nil && c.Developer.ID == acc.ID {
		writeJSON(w, http.StatusOK, c)
		return
	}
	if c.Status != models.CommissionStatusBidding {
		respondError(w, http.StatusNotFound, "commission not found")
		return
	}
	if dev.RemainingBids == 0 && !tier.AllowsOffer(c.FixedPriceAmount, c.HourlyPriceAmount) {
		respondError(w, http.StatusNotFound, "commission not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type submitBidRequest struct {
	FixedBidAmount  int     `json:"fixedBidAmount"`
	HourlyBidAmount int     `json:"hourlyBidAmount"`
	Testimony       *string `json:"testimony"`
}

// SubmitBid handles POST /developer/commission/{id}/submit-bid. The bid
// insert and the quota decrement commit in one transaction.
func (h *DeveloperHandler) SubmitBid(w http.ResponseWriter, r *http.Request) {
	acc, _, _, ok := h.requireDeveloper(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid commission id")
		return
	}

	var req submitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.FixedBidAmount < 0 || req.HourlyBidAmount < 0 {
		respondError(w, http.StatusBadRequest, "bid amounts must not be negative")
		return
	}

	c, err := h.Commissions.GetByID(r.Context(), id)
	if err != nil || c.Status != models.CommissionStatusBidding {
		respondError(w, http.StatusNotFound, "commission not found")
		return
	}

	// The bypass principal has no rows to lock or insert against; run
	// the same quota check and echo the would-be bid.
	if acc.ID == auth.TestAccountID {
		dev, _ := acc.Developer.Resolve(r.Context(), nil) // primed ref, never hits a store
		if dev.RemainingBids == 0 {
			respondError(w, http.StatusForbidden, "bid quota exhausted")
			return
		}
		writeJSON(w, http.StatusOK, &models.Bid{
			Commission:      models.NewCommissionRef(c.ID),
			Bidder:          models.ResolvedAccountRef(acc),
			FixedBidAmount:  req.FixedBidAmount,
			HourlyBidAmount: req.HourlyBidAmount,
			Testimony:       req.Testimony,
			CreationTime:    time.Now(),
		})
		return
	}

	tx, err := h.Pool.Begin(r.Context())
	if err != nil {
		h.Logger.Error("begin tx", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer tx.Rollback(r.Context())

	dev, err := h.Developers.GetByAccountIDForUpdate(r.Context(), tx, acc.ID)
	if err != nil {
		h.Logger.Error("lock developer row", "account_id", acc.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if dev.RemainingBids == 0 {
		respondError(w, http.StatusForbidden, "bid quota exhausted")
		return
	}

	bid := &models.Bid{
		Commission:      models.NewCommissionRef(c.ID),
		Bidder:          models.ResolvedAccountRef(acc),
		FixedBidAmount:  req.FixedBidAmount,
		HourlyBidAmount: req.HourlyBidAmount,
		Testimony:       req.Testimony,
	}
	if err := h.Bids.CreateTx(r.Context(), tx, bid); err != nil {
		h.Logger.Error("create bid", "commission_id", c.ID, "account_id", acc.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	remaining := dev.RemainingBids
	if remaining > 0 {
		remaining--
	}
	if err := h.Developers.UpdateBidCountTx(r.Context(), tx, acc.ID, remaining, dev.TotalBids+1); err != nil {
		h.Logger.Error("decrement bid quota", "account_id", acc.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.Logger.Error("commit submit-bid tx", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// requireDeveloper resolves the caller's developer sub-record and tier.
func (h *DeveloperHandler) requireDeveloper(w http.ResponseWriter, r *http.Request) (*models.Account, *models.DeveloperAccount, *models.DeveloperTier, bool) {
	acc := auth.AccountFromCtx(r.Context())
	if acc == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil, nil, false
	}
	if !acc.IsDeveloper() {
		respondError(w, http.StatusForbidden, "developer profile required")
		return nil, nil, nil, false
	}
	dev, err := acc.Developer.Resolve(r.Context(), h.Developers)
	if err != nil {
		h.Logger.Error("resolve developer sub-record", "account_id", acc.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return nil, nil, nil, false
	}
	tier, ok := h.Tiers.DeveloperTier(dev.TierID)
	if !ok {
		h.Logger.Error("developer tier missing from catalog", "tier_id", dev.TierID)
		respondError(w, http.StatusInternalServerError, "internal error")
		return nil, nil, nil, false
	}
	return acc, dev, tier, true
}
