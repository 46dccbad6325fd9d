package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/craftstudio/backend/internal/models"
)

func newAccountHandler() (*AccountHandler, *mockBuyerStore, *mockDeveloperStore) {
	buyers := newMockBuyerStore()
	devs := newMockDeveloperStore()
	h := &AccountHandler{Buyers: buyers, Developers: devs, Tiers: testCatalog(), Logger: slog.Default()}
	return h, buyers, devs
}

func TestSelectType_CreatesBuyerThenMeShowsIt(t *testing.T) {
	h, buyers, _ := newAccountHandler()
	acc := &models.Account{ID: 7, Username: "sam", Email: "sam@example.com"}

	req := injectAccount(httptest.NewRequest(http.MethodGet, "/account/select-type?type=buyer", nil), acc)
	rec := httptest.NewRecorder()
	h.SelectType(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := buyers.records[7]; !ok {
		t.Fatal("buyer sub-record was not created")
	}

	// Role creation happens at the auth layer on the next request; the
	// handler reads whatever the principal carries.
	acc.Buyer = models.NewBuyerRef(7)

	rec2 := httptest.NewRecorder()
	h.Me(rec2, injectAccount(httptest.NewRequest(http.MethodGet, "/account/me", nil), acc))
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec2.Code, rec2.Body.String())
	}
	var me meResponse
	if err := json.Unmarshal(rec2.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me.BuyerAccount == nil {
		t.Fatal("me response missing buyerAccount")
	}
	if me.BuyerAccount.Total != 0 {
		t.Errorf("totalCommissions = %d, want 0", me.BuyerAccount.Total)
	}
	if me.BuyerAccount.Tier != "free" {
		t.Errorf("tier = %q, want free", me.BuyerAccount.Tier)
	}
	if me.DeveloperAccount != nil {
		t.Error("me response has a developer summary without the role")
	}
}

func TestSelectType_AlreadyHasRole(t *testing.T) {
	h, buyers, _ := newAccountHandler()
	acc := &models.Account{ID: 7, Buyer: models.NewBuyerRef(7)}
	buyers.records[7] = &models.BuyerAccount{AccountID: 7}

	req := injectAccount(httptest.NewRequest(http.MethodGet, "/account/select-type?type=buyer", nil), acc)
	rec := httptest.NewRecorder()
	h.SelectType(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSelectType_RejectsSecondRole(t *testing.T) {
	h, buyers, devs := newAccountHandler()
	acc := &models.Account{ID: 7, Buyer: models.NewBuyerRef(7)}
	buyers.records[7] = &models.BuyerAccount{AccountID: 7}

	req := injectAccount(httptest.NewRequest(http.MethodGet, "/account/select-type?type=developer", nil), acc)
	rec := httptest.NewRecorder()
	h.SelectType(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(devs.records) != 0 {
		t.Error("developer sub-record created for an account that already has a type")
	}
}

func TestSelectType_InvalidType(t *testing.T) {
	h, _, _ := newAccountHandler()
	acc := &models.Account{ID: 7}

	req := injectAccount(httptest.NewRequest(http.MethodGet, "/account/select-type?type=admin", nil), acc)
	rec := httptest.NewRecorder()
	h.SelectType(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSelectType_DeveloperStartsOnFreeTier(t *testing.T) {
	h, _, devs := newAccountHandler()
	acc := &models.Account{ID: 9}

	req := injectAccount(httptest.NewRequest(http.MethodGet, "/account/select-type?type=developer", nil), acc)
	rec := httptest.NewRecorder()
	h.SelectType(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	d, ok := devs.records[9]
	if !ok {
		t.Fatal("developer sub-record was not created")
	}
	if d.TierID != 0 || d.RemainingBids != 1 {
		t.Errorf("record = %+v, want free tier with 1 remaining bid", d)
	}
}

func TestMe_RoleFlagMatchesSubRecord(t *testing.T) {
	h, buyers, devs := newAccountHandler()
	buyers.records[5] = &models.BuyerAccount{AccountID: 5, TierID: 0}
	devs.records[5] = &models.DeveloperAccount{AccountID: 5, TierID: 1, RemainingBids: 3, TotalBids: 8}
	acc := &models.Account{ID: 5, Buyer: models.NewBuyerRef(5), Developer: models.NewDeveloperRef(5)}

	rec := httptest.NewRecorder()
	h.Me(rec, injectAccount(httptest.NewRequest(http.MethodGet, "/account/me", nil), acc))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var me meResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me.BuyerAccount == nil || me.DeveloperAccount == nil {
		t.Fatal("expected both role summaries")
	}
	if me.DeveloperAccount.Tier != "bronze" || me.DeveloperAccount.Remaining != 3 || me.DeveloperAccount.Total != 8 {
		t.Errorf("developer summary mismatch: %+v", me.DeveloperAccount)
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	h, _, _ := newAccountHandler()
	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/account/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
