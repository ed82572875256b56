package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/A414347330/vip-cinema/internal/model"
)

// CodeRepo manages the 'activation_codes' table.
type CodeRepo struct{ DB *sql.DB }

func NewCodeRepo(db *sql.DB) *CodeRepo { return &CodeRepo{DB: db} }

// Consume marks a code used on behalf of usedBy and returns its
// duration_days. The read and the conditional write run in one transaction
// with a row lock, and the UPDATE is additionally guarded by is_used=0 with
// the affected-row count checked, so two concurrent redemptions of the same
// code can never both succeed. A missing or already-used code yields
// ErrCodeUnavailable either way.
func (r *CodeRepo) Consume(ctx context.Context, code, usedBy string) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var days sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT duration_days FROM activation_codes WHERE code=? AND is_used=0 FOR UPDATE",
		code).Scan(&days)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrCodeUnavailable
		}
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE activation_codes SET is_used=1, used_by=?, used_at=UTC_TIMESTAMP() WHERE code=? AND is_used=0",
		usedBy, code)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrCodeUnavailable
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(days.Int64), nil
}

// CreateBatch inserts generated codes in a single multi-row statement.
// Passing an empty slice has no effect and returns nil.
func (r *CodeRepo) CreateBatch(ctx context.Context, codes []model.ActivationCode) error {
	if len(codes) == 0 {
		return nil
	}
	query := "INSERT INTO activation_codes (code, duration_days) VALUES "
	args := make([]any, 0, len(codes)*2)
	for i, c := range codes {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, c.Code, c.DurationDays)
	}
	_, err := r.DB.ExecContext(ctx, query, args...)
	return err
}

// List returns a page of codes plus the total match count. filter is
// "used", "unused" or anything else for all; search matches the code token
// and the redeeming username.
func (r *CodeRepo) List(ctx context.Context, filter, search string, page, pageSize int) ([]model.CodeSummary, int64, error) {
	where := []string{}
	args := []any{}

	switch strings.ToLower(filter) {
	case "used":
		where = append(where, "is_used=1")
	case "unused":
		where = append(where, "is_used=0")
	}
	if search != "" {
		where = append(where, "(LOWER(code) LIKE ? OR LOWER(COALESCE(used_by,'')) LIKE ?)")
		like := "%" + strings.ToLower(search) + "%"
		args = append(args, like, like)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM activation_codes WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT id, code, duration_days, is_used, used_by, used_at, created_at
		FROM activation_codes
		WHERE ` + cond + `
		ORDER BY id DESC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
	rows, err := r.DB.QueryContext(ctx, q, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.CodeSummary, 0, pageSize)
	for rows.Next() {
		var (
			c      model.CodeSummary
			usedBy sql.NullString
			usedAt sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Code, &c.DurationDays, &c.IsUsed, &usedBy, &usedAt, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		if usedBy.Valid {
			s := usedBy.String
			c.UsedBy = &s
		}
		if usedAt.Valid {
			t := usedAt.Time
			c.UsedAt = &t
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Delete removes a code row. ErrNotFound when the id does not exist.
func (r *CodeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM activation_codes WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
