package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/craftstudio/backend/internal/auth"
	"github.com/craftstudio/backend/internal/catalog"
	"github.com/craftstudio/backend/internal/models"
	"github.com/craftstudio/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct {
	committed  *bool
	rolledBack *bool
}

func (t noopTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t noopTx) Commit(context.Context) error {
	if t.committed != nil {
		*t.committed = true
	}
	return nil
}
func (t noopTx) Rollback(context.Context) error {
	if t.rolledBack != nil && (t.committed == nil || !*t.committed) {
		*t.rolledBack = true
	}
	return nil
}
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// --- TxBeginner mock ---

type mockPool struct {
	begun      int
	committed  bool
	rolledBack bool
}

func (m *mockPool) Begin(context.Context) (pgx.Tx, error) {
	m.begun++
	return noopTx{committed: &m.committed, rolledBack: &m.rolledBack}, nil
}

// --- commission store mock ---

type mockCommissionStore struct {
	commissions map[int64]*models.Commission
	nextID      int64

	lastAvailable  repository.AvailableQuery
	assignedDev    map[int64]int64 // commission id -> developer id
	availableList  []*models.Commission
	inProgressList []*models.Commission
}

func newMockCommissionStore() *mockCommissionStore {
	return &mockCommissionStore{
		commissions: make(map[int64]*models.Commission),
		nextID:      1,
		assignedDev: make(map[int64]int64),
	}
}

func (m *mockCommissionStore) CreateTx(_ context.Context, _ pgx.Tx, c *models.Commission) error {
	c.ID = m.nextID
	m.nextID++
	c.CreationTime = time.Now()
	m.commissions[c.ID] = c
	return nil
}

func (m *mockCommissionStore) GetByID(_ context.Context, id int64) (*models.Commission, error) {
	c, ok := m.commissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (m *mockCommissionStore) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id int64) (*models.Commission, error) {
	return m.GetByID(ctx, id)
}

func (m *mockCommissionStore) ListByOwner(_ context.Context, ownerID int64, _, _ int) ([]*models.Commission, error) {
	var out []*models.Commission
	for _, c := range m.commissions {
		if c.Owner.ID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCommissionStore) ListAvailable(_ context.Context, q repository.AvailableQuery) ([]*models.Commission, error) {
	m.lastAvailable = q
	return m.availableList, nil
}

func (m *mockCommissionStore) ListInProgress(_ context.Context, _ int64, _, _ int) ([]*models.Commission, error) {
	return m.inProgressList, nil
}

func (m *mockCommissionStore) AssignDeveloperTx(_ context.Context, _ pgx.Tx, commissionID, developerID int64) error {
	c, ok := m.commissions[commissionID]
	if !ok {
		return repository.ErrNotFound
	}
	m.assignedDev[commissionID] = developerID
	c.Status = models.CommissionStatusAccepted
	ref := models.NewAccountRef(developerID)
	c.Developer = &ref
	return nil
}

// --- bid store mock ---

type mockBidStore struct {
	bids     map[int64]*models.Bid
	nextID   int64
	accepted map[int64]bool
}

func newMockBidStore() *mockBidStore {
	return &mockBidStore{bids: make(map[int64]*models.Bid), nextID: 1, accepted: make(map[int64]bool)}
}

func (m *mockBidStore) CreateTx(_ context.Context, _ pgx.Tx, b *models.Bid) error {
	b.ID = m.nextID
	m.nextID++
	b.CreationTime = time.Now()
	m.bids[b.ID] = b
	return nil
}

func (m *mockBidStore) GetByID(_ context.Context, id int64) (*models.Bid, error) {
	b, ok := m.bids[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (m *mockBidStore) MarkAcceptedTx(_ context.Context, _ pgx.Tx, bidID int64) error {
	b, ok := m.bids[bidID]
	if !ok {
		return repository.ErrNotFound
	}
	b.Accepted = true
	m.accepted[bidID] = true
	return nil
}

func (m *mockBidStore) ListForCommission(_ context.Context, commissionID int64) ([]*models.Bid, error) {
	var out []*models.Bid
	for _, b := range m.bids {
		if b.Commission.ID == commissionID {
			out = append(out, b)
		}
	}
	return out, nil
}

// --- quota store mocks ---

type mockBuyerStore struct {
	records map[int64]*models.BuyerAccount
}

func newMockBuyerStore() *mockBuyerStore {
	return &mockBuyerStore{records: make(map[int64]*models.BuyerAccount)}
}

func (m *mockBuyerStore) GetByAccountID(_ context.Context, id int64) (*models.BuyerAccount, error) {
	b, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (m *mockBuyerStore) GetByAccountIDForUpdate(ctx context.Context, _ pgx.Tx, id int64) (*models.BuyerAccount, error) {
	return m.GetByAccountID(ctx, id)
}

func (m *mockBuyerStore) Create(_ context.Context, accountID int64, freeTier *models.BuyerTier) (*models.BuyerAccount, error) {
	if _, exists := m.records[accountID]; exists {
		return nil, fmt.Errorf("duplicate buyer record")
	}
	b := &models.BuyerAccount{AccountID: accountID, TierID: freeTier.ID, RemainingCommissions: freeTier.CommissionsPerMonth}
	m.records[accountID] = b
	return b, nil
}

func (m *mockBuyerStore) UpdateCommissionCountTx(_ context.Context, _ pgx.Tx, accountID int64, remaining, total int) error {
	b, ok := m.records[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	b.RemainingCommissions = remaining
	b.TotalCommissions = total
	return nil
}

type mockDeveloperStore struct {
	records map[int64]*models.DeveloperAccount
}

func newMockDeveloperStore() *mockDeveloperStore {
	return &mockDeveloperStore{records: make(map[int64]*models.DeveloperAccount)}
}

func (m *mockDeveloperStore) GetByAccountID(_ context.Context, id int64) (*models.DeveloperAccount, error) {
	d, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (m *mockDeveloperStore) GetByAccountIDForUpdate(ctx context.Context, _ pgx.Tx, id int64) (*models.DeveloperAccount, error) {
	return m.GetByAccountID(ctx, id)
}

func (m *mockDeveloperStore) Create(_ context.Context, accountID int64, freeTier *models.DeveloperTier) (*models.DeveloperAccount, error) {
	if _, exists := m.records[accountID]; exists {
		return nil, fmt.Errorf("duplicate developer record")
	}
	d := &models.DeveloperAccount{AccountID: accountID, TierID: freeTier.ID, RemainingBids: freeTier.BidsPerMonth}
	m.records[accountID] = d
	return d, nil
}

func (m *mockDeveloperStore) UpdateBidCountTx(_ context.Context, _ pgx.Tx, accountID int64, remaining, total int) error {
	d, ok := m.records[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	d.RemainingBids = remaining
	d.TotalBids = total
	return nil
}

// --- account getter mock ---

type mockAccountStore struct {
	accounts map[int64]*models.Account
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: make(map[int64]*models.Account)}
}

func (m *mockAccountStore) GetByID(_ context.Context, id int64) (*models.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type stubTierSource struct {
	buyers     []*models.BuyerTier
	developers []*models.DeveloperTier
}

func (s stubTierSource) ListBuyerTiers(context.Context) ([]*models.BuyerTier, error) {
	return s.buyers, nil
}
func (s stubTierSource) ListDeveloperTiers(context.Context) ([]*models.DeveloperTier, error) {
	return s.developers, nil
}

// testCatalog seeds a free tier plus one paid tier per role.
func testCatalog() *catalog.Catalog {
	bronzeBuyer := "prod_buyer_bronze"
	bronzeDev := "prod_dev_bronze"
	c := catalog.New(stubTierSource{
		buyers: []*models.BuyerTier{
			{ID: 0, Name: "free", CommissionsPerMonth: 1, MaxFixedOffer: 5000, MaxHourlyOffer: 5000},
			{ID: 1, Name: "bronze", CommissionsPerMonth: 3, MaxFixedOffer: 5000, MaxHourlyOffer: 20000, Price: 349, StripeProductID: &bronzeBuyer},
		},
		developers: []*models.DeveloperTier{
			{ID: 0, Name: "free", BidsPerMonth: 1, FixedOfferLimit: 4000, HourlyOfferLimit: 4000},
			{ID: 1, Name: "bronze", BidsPerMonth: 3, FixedOfferLimit: 5000, HourlyOfferLimit: 5000, Price: 199, StripeProductID: &bronzeDev},
		},
	})
	if err := c.Refresh(context.Background()); err != nil {
		panic(err)
	}
	return c
}

func buyerAccount(id int64) *models.Account {
	return &models.Account{
		ID: id, Username: "buyer", Email: "buyer@example.com",
		Buyer: models.NewBuyerRef(id),
	}
}

func developerAccount(id int64) *models.Account {
	return &models.Account{
		ID: id, Username: "dev", Email: "dev@example.com",
		Developer: models.NewDeveloperRef(id),
	}
}

func injectAccount(r *http.Request, acc *models.Account) *http.Request {
	return r.WithContext(auth.WithAccount(r.Context(), acc))
}
