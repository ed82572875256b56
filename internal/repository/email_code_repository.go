package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/A414347330/vip-cinema/internal/model"
)

// EmailCodeRepo reads the 'email_code_temp' table, the log of verification
// codes written by the external registration flow. This service never
// inserts into it; the admin panel only pages through it.
type EmailCodeRepo struct{ DB *sql.DB }

func NewEmailCodeRepo(db *sql.DB) *EmailCodeRepo { return &EmailCodeRepo{DB: db} }

// List returns a page of log rows, newest first, optionally filtered by
// email substring.
func (r *EmailCodeRepo) List(ctx context.Context, search string, page, pageSize int) ([]model.EmailCode, int64, error) {
	cond := "1=1"
	args := []any{}
	if search != "" {
		cond = "LOWER(email) LIKE ?"
		args = append(args, "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM email_code_temp WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT id, email, code, created_at
		FROM email_code_temp
		WHERE ` + cond + `
		ORDER BY id DESC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
	rows, err := r.DB.QueryContext(ctx, q, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.EmailCode, 0, pageSize)
	for rows.Next() {
		var e model.EmailCode
		if err := rows.Scan(&e.ID, &e.Email, &e.Code, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
