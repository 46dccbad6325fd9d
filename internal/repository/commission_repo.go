package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftstudio/backend/internal/models"
)

type CommissionRepo struct {
	pool *pgxpool.Pool
}

func NewCommissionRepo(pool *pgxpool.Pool) *CommissionRepo {
	return &CommissionRepo{pool: pool}
}

const commissionColumns = `id, title, summary, requirements, category, fixed_price_amount, hourly_price_amount, minimum_reputation, creation_time, expiry_time, status, owner, developer`

// statusRank orders statuses by lifecycle progression for listing.
const statusRank = `CASE status
	WHEN 'archived' THEN 5 WHEN 'expired' THEN 4 WHEN 'accepted' THEN 3
	WHEN 'bidding' THEN 2 WHEN 'submitted' THEN 1 ELSE 0 END`

// CreateTx inserts a commission inside the caller's transaction,
// filling in the server-assigned id and creation time.
func (r *CommissionRepo) CreateTx(ctx context.Context, tx pgx.Tx, c *models.Commission) error {
	return tx.QueryRow(ctx, `
		INSERT INTO commissions (title, summary, requirements, category, fixed_price_amount, hourly_price_amount, minimum_reputation, expiry_time, status, owner)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, creation_time
	`,
		c.Title, c.Summary, c.Requirements, c.Category, c.FixedPriceAmount, c.HourlyPriceAmount,
		c.MinimumReputation, c.ExpiryTime, c.Status, c.Owner.ID,
	).Scan(&c.ID, &c.CreationTime)
}

func (r *CommissionRepo) GetByID(ctx context.Context, id int64) (*models.Commission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+commissionColumns+` FROM commissions WHERE id = $1`, id)
	return scanCommission(row)
}

// GetByIDForUpdate locks the commission row. Call within a transaction.
func (r *CommissionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Commission, error) {
	row := tx.QueryRow(ctx, `SELECT `+commissionColumns+` FROM commissions WHERE id = $1 FOR UPDATE`, id)
	return scanCommission(row)
}

// ListByOwner returns a page of a buyer's postings, most advanced
// status first, newest first within a status.
func (r *CommissionRepo) ListByOwner(ctx context.Context, ownerID int64, page, pageSize int) ([]*models.Commission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+commissionColumns+` FROM commissions
		WHERE owner = $1
		ORDER BY `+statusRank+` DESC, creation_time DESC
		LIMIT $2 OFFSET $3
	`, ownerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return collectCommissions(rows)
}

// AvailableQuery filters and orders the developer browse listing.
type AvailableQuery struct {
	Search      string
	FixedLimit  int // tier ceiling, -1 = unlimited
	HourlyLimit int // tier ceiling, -1 = unlimited
	Sort        models.CommissionSort
	Invert      bool
	Page        int
	PageSize    int
}

// ListAvailable returns bidding commissions matching the title search
// whose fixed or hourly price fits the caller's tier ceilings.
func (r *CommissionRepo) ListAvailable(ctx context.Context, q AvailableQuery) ([]*models.Commission, error) {
	var sortExpr string
	switch q.Sort {
	case models.SortDateExpiry:
		sortExpr = `expiry_time - creation_time`
	case models.SortFixedPrice:
		sortExpr = `fixed_price_amount`
	case models.SortHourlyPrice:
		sortExpr = `hourly_price_amount`
	case models.SortReputation:
		sortExpr = `minimum_reputation`
	default:
		sortExpr = `creation_time`
	}
	dir := `DESC`
	if q.Invert {
		dir = `ASC`
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+commissionColumns+` FROM commissions
		WHERE status = 'bidding'
		  AND title ILIKE '%' || $1 || '%'
		  AND (($2 < 0 OR fixed_price_amount <= $2) OR ($3 < 0 OR hourly_price_amount <= $3))
		ORDER BY `+sortExpr+` `+dir+`
		LIMIT $4 OFFSET $5
	`, q.Search, q.FixedLimit, q.HourlyLimit, q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return nil, err
	}
	return collectCommissions(rows)
}

// ListInProgress returns a page of accepted commissions assigned to the
// developer, newest first.
func (r *CommissionRepo) ListInProgress(ctx context.Context, developerID int64, page, pageSize int) ([]*models.Commission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+commissionColumns+` FROM commissions
		WHERE status = 'accepted' AND developer = $1
		ORDER BY creation_time DESC
		LIMIT $2 OFFSET $3
	`, developerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return collectCommissions(rows)
}

// AssignDeveloperTx marks the commission accepted and records the
// winning developer. Call within the accept-bid transaction.
func (r *CommissionRepo) AssignDeveloperTx(ctx context.Context, tx pgx.Tx, commissionID, developerID int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE commissions SET status = 'accepted', developer = $2 WHERE id = $1
	`, commissionID, developerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireDue flips bidding commissions past their expiry to expired and
// returns how many were swept.
func (r *CommissionRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE commissions SET status = 'expired'
		WHERE status = 'bidding' AND expiry_time < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanCommission(row pgx.Row) (*models.Commission, error) {
	var c models.Commission
	var ownerID int64
	var developerID *int64
	err := row.Scan(&c.ID, &c.Title, &c.Summary, &c.Requirements, &c.Category,
		&c.FixedPriceAmount, &c.HourlyPriceAmount, &c.MinimumReputation,
		&c.CreationTime, &c.ExpiryTime, &c.Status, &ownerID, &developerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Owner = models.NewAccountRef(ownerID)
	if developerID != nil {
		ref := models.NewAccountRef(*developerID)
		c.Developer = &ref
	}
	return &c, nil
}

func collectCommissions(rows pgx.Rows) ([]*models.Commission, error) {
	defer rows.Close()
	var list []*models.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
