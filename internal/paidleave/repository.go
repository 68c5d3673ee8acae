package paidleave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/genba-erp/genba-erp/internal/platform/db"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for paid leave. Day
// columns are NUMERIC(4,1), read back as text and parsed into decimals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const grantColumns = `id, employee_id, grant_date, expiry_date, granted_days::text, used_days::text, expired_days::text, created_at, updated_at`

func scanGrant(row pgx.Row) (*Grant, error) {
	var g Grant
	var grantDate, expiryDate pgtype.Date
	var granted, used, expired string
	err := row.Scan(&g.ID, &g.EmployeeID, &grantDate, &expiryDate, &granted, &used, &expired, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	g.GrantDate = grantDate.Time
	g.ExpiryDate = expiryDate.Time
	if g.GrantedDays, err = decimal.NewFromString(granted); err != nil {
		return nil, fmt.Errorf("paidleave: parse granted_days: %w", err)
	}
	if g.UsedDays, err = decimal.NewFromString(used); err != nil {
		return nil, fmt.Errorf("paidleave: parse used_days: %w", err)
	}
	if g.ExpiredDays, err = decimal.NewFromString(expired); err != nil {
		return nil, fmt.Errorf("paidleave: parse expired_days: %w", err)
	}
	return &g, nil
}

// InsertGrant stores a grant. One per (employee, grant_date).
func (r *Repository) InsertGrant(ctx context.Context, employeeID int64, grantDate, expiryDate time.Time, days decimal.Decimal) (*Grant, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO paid_leave_grants (employee_id, grant_date, expiry_date, granted_days, used_days, expired_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, 0, 0, NOW(), NOW())
		RETURNING `+grantColumns,
		employeeID, grantDate, expiryDate, days.String())
	g, err := scanGrant(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("paidleave: grant exists for employee %d on %s: %w",
				employeeID, grantDate.Format("2006-01-02"), httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("paidleave: insert grant: %w", err)
	}
	return g, nil
}

// GetGrant loads a grant by id.
func (r *Repository) GetGrant(ctx context.Context, id int64) (*Grant, error) {
	g, err := scanGrant(r.pool.QueryRow(ctx, `SELECT `+grantColumns+` FROM paid_leave_grants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("paidleave: get grant: %w", err)
	}
	return g, nil
}

// ListGrants returns an employee's grants, oldest first.
func (r *Repository) ListGrants(ctx context.Context, employeeID int64) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+grantColumns+` FROM paid_leave_grants
		WHERE employee_id = $1 ORDER BY grant_date, id`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("paidleave: list grants: %w", err)
	}
	defer rows.Close()

	var out []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

const requestColumns = `id, employee_id, leave_date, leave_type, consumed_days::text, grant_id, status, reason, decided_by, decided_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	var leaveDate pgtype.Date
	var leaveType, status, consumed string
	err := row.Scan(&req.ID, &req.EmployeeID, &leaveDate, &leaveType, &consumed, &req.GrantID,
		&status, &req.Reason, &req.DecidedBy, &req.DecidedAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	req.LeaveDate = leaveDate.Time
	req.LeaveType = LeaveType(leaveType)
	req.Status = RequestStatus(status)
	if req.ConsumedDays, err = decimal.NewFromString(consumed); err != nil {
		return nil, fmt.Errorf("paidleave: parse consumed_days: %w", err)
	}
	return &req, nil
}

// InsertRequest stores a pending request. One per (employee, leave_date).
func (r *Repository) InsertRequest(ctx context.Context, input CreateRequestInput, consumed decimal.Decimal) (*Request, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO paid_leave_requests (employee_id, leave_date, leave_type, consumed_days, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, 'PENDING', $5, NOW(), NOW())
		RETURNING `+requestColumns,
		input.EmployeeID, input.LeaveDate, string(input.LeaveType), consumed.String(), input.Reason)
	req, err := scanRequest(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("paidleave: request exists for employee %d on %s: %w",
				input.EmployeeID, input.LeaveDate.Format("2006-01-02"), httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("paidleave: insert request: %w", err)
	}
	return req, nil
}

// GetRequest loads a request by id.
func (r *Repository) GetRequest(ctx context.Context, id int64) (*Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM paid_leave_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("paidleave: get request: %w", err)
	}
	return req, nil
}

// ListRequests returns an employee's requests, newest leave date first.
func (r *Repository) ListRequests(ctx context.Context, employeeID int64, status RequestStatus) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+` FROM paid_leave_requests
		WHERE employee_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY leave_date DESC, id DESC`, employeeID, string(status))
	if err != nil {
		return nil, fmt.Errorf("paidleave: list requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// Approve draws the request's days from the oldest non-expired grant that
// can cover them, atomically. Grant rows lock in grant-date order.
func (r *Repository) Approve(ctx context.Context, requestID, actorID int64, asOf time.Time) (*Request, error) {
	var req *Request
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		cur, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM paid_leave_requests WHERE id = $1 FOR UPDATE`, requestID))
		if err != nil {
			return err
		}
		if cur.Status != RequestPending {
			return fmt.Errorf("paidleave: request is %s: %w", cur.Status, httpx.ErrConflict)
		}

		grant, err := scanGrant(tx.QueryRow(ctx, `
			SELECT `+grantColumns+` FROM paid_leave_grants
			WHERE employee_id = $1
			  AND expiry_date >= $2
			  AND granted_days - used_days - expired_days >= $3::numeric
			ORDER BY grant_date, id
			LIMIT 1
			FOR UPDATE`,
			cur.EmployeeID, asOf, cur.ConsumedDays.String()))
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				return ErrInsufficientBalance
			}
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE paid_leave_grants SET used_days = used_days + $2::numeric, updated_at = NOW()
			WHERE id = $1`, grant.ID, cur.ConsumedDays.String()); err != nil {
			return err
		}
		req, err = scanRequest(tx.QueryRow(ctx, `
			UPDATE paid_leave_requests
			SET status = 'APPROVED', grant_id = $2, decided_by = $3, decided_at = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING `+requestColumns, requestID, grant.ID, actorID))
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, httpx.ErrConflict) || errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("paidleave: approve: %w", err)
	}
	return req, nil
}

// Reject marks a pending request rejected.
func (r *Repository) Reject(ctx context.Context, requestID, actorID int64) (*Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `
		UPDATE paid_leave_requests
		SET status = 'REJECTED', decided_by = $2, decided_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+requestColumns, requestID, actorID))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("paidleave: not a pending request: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("paidleave: reject: %w", err)
	}
	return req, nil
}

// Cancel voids a request. An approved request's days go back onto the grant
// they came from, in the same transaction.
func (r *Repository) Cancel(ctx context.Context, requestID, actorID int64) (*Request, error) {
	var req *Request
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		cur, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM paid_leave_requests WHERE id = $1 FOR UPDATE`, requestID))
		if err != nil {
			return err
		}
		if cur.Status != RequestPending && cur.Status != RequestApproved {
			return fmt.Errorf("paidleave: request is %s: %w", cur.Status, httpx.ErrConflict)
		}
		if cur.Status == RequestApproved && cur.GrantID != nil {
			if _, err := tx.Exec(ctx, `
				UPDATE paid_leave_grants SET used_days = used_days - $2::numeric, updated_at = NOW()
				WHERE id = $1`, *cur.GrantID, cur.ConsumedDays.String()); err != nil {
				return err
			}
		}
		req, err = scanRequest(tx.QueryRow(ctx, `
			UPDATE paid_leave_requests
			SET status = 'CANCELLED', decided_by = $2, decided_at = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING `+requestColumns, requestID, actorID))
		return err
	})
	if err != nil {
		if errors.Is(err, httpx.ErrConflict) || errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("paidleave: cancel: %w", err)
	}
	return req, nil
}

// ExpireGrants moves remaining days to expired on every grant past its
// expiry date. Returns the number of grants swept.
func (r *Repository) ExpireGrants(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE paid_leave_grants
		SET expired_days = expired_days + (granted_days - used_days - expired_days), updated_at = NOW()
		WHERE expiry_date < $1 AND granted_days - used_days - expired_days > 0`, asOf)
	if err != nil {
		return 0, fmt.Errorf("paidleave: expire sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}
