package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/A414347330/vip-cinema/internal/model"
)

// UserRepo reads and writes the 'users' table. The primary key column name
// differs between schema generations (`id` vs `user_id`), so it is injected
// once at construction and aliased to `id` in every query instead of being
// probed at runtime.
type UserRepo struct {
	DB *sql.DB
	pk string
}

func NewUserRepo(db *sql.DB, pkColumn string) *UserRepo {
	if pkColumn == "" {
		pkColumn = "id"
	}
	return &UserRepo{DB: db, pk: pkColumn}
}

func (r *UserRepo) cols() string {
	return fmt.Sprintf("%s AS id, username, email, password_hash, role, is_active, vip_expire_time, created_at, updated_at", r.pk)
}

func (r *UserRepo) scanUser(row *sql.Row) (model.User, error) {
	var (
		u      model.User
		expiry sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsActive, &expiry, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if expiry.Valid {
		t := expiry.Time
		u.VIPExpireTime = &t
	}
	return u, nil
}

// GetByCredentials fetches the first user matching the account (username or
// email) together with the supplied password hash. Plain string equality on
// password_hash, no verification: the caller hashes before calling. LIMIT 1
// silently picks the first row when duplicates exist upstream.
func (r *UserRepo) GetByCredentials(ctx context.Context, account, passwordHash string) (model.User, error) {
	account = strings.TrimSpace(account)
	q := "SELECT " + r.cols() + " FROM users WHERE (username=? OR email=?) AND password_hash=? LIMIT 1"
	return r.scanUser(r.DB.QueryRowContext(ctx, q, account, account, passwordHash))
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	q := "SELECT " + r.cols() + " FROM users WHERE username=? LIMIT 1"
	return r.scanUser(r.DB.QueryRowContext(ctx, q, strings.TrimSpace(username)))
}

// GetByID fetches a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	q := fmt.Sprintf("SELECT %s FROM users WHERE %s=? LIMIT 1", r.cols(), r.pk)
	return r.scanUser(r.DB.QueryRowContext(ctx, q, id))
}

// Search returns a page of users plus the total match count. An empty term
// lists everyone; otherwise username and email are matched with LIKE.
func (r *UserRepo) Search(ctx context.Context, term string, page, pageSize int) ([]model.User, int64, error) {
	cond := "1=1"
	args := []any{}
	if term != "" {
		cond = "(LOWER(username) LIKE ? OR LOWER(email) LIKE ?)"
		like := "%" + strings.ToLower(term) + "%"
		args = append(args, like, like)
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM users WHERE %s ORDER BY %s ASC LIMIT ? OFFSET ?",
		r.cols(), cond, r.pk)
	argsData := append(append([]any{}, args...), pageSize, (page-1)*pageSize)
	rows, err := r.DB.QueryContext(ctx, q, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.User, 0, pageSize)
	for rows.Next() {
		var (
			u      model.User
			expiry sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
			&u.IsActive, &expiry, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if expiry.Valid {
			t := expiry.Time
			u.VIPExpireTime = &t
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateRole sets users.role. MySQL reports zero affected rows for an
// UPDATE that changed nothing, so existence is not inferred here; callers
// load the row first when they need ErrNotFound.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	q := fmt.Sprintf("UPDATE users SET role=? WHERE %s=?", r.pk)
	_, err := r.DB.ExecContext(ctx, q, role, id)
	return err
}

// SetVIP writes the stored activity flag and expiry together. A nil expiry
// clears vip_expire_time.
func (r *UserRepo) SetVIP(ctx context.Context, id uint64, active bool, expiry *time.Time) error {
	q := fmt.Sprintf("UPDATE users SET is_active=?, vip_expire_time=? WHERE %s=?", r.pk)
	var exp any
	if expiry != nil {
		exp = expiry.UTC()
	}
	_, err := r.DB.ExecContext(ctx, q, active, exp, id)
	return err
}

// ExtendVIP grants VIP days in a single statement: the new expiry is
// computed inside MySQL from the later of now and the stored value, so two
// codes redeemed for one user at the same time both land instead of the
// last write clobbering the first. The updated expiry is read back in the
// same transaction.
func (r *UserRepo) ExtendVIP(ctx context.Context, id uint64, days int) (time.Time, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}
	defer func() { _ = tx.Rollback() }()

	q := fmt.Sprintf(`UPDATE users
		SET is_active=1,
		    vip_expire_time = DATE_ADD(GREATEST(COALESCE(vip_expire_time, UTC_TIMESTAMP()), UTC_TIMESTAMP()), INTERVAL ? DAY)
		WHERE %s=?`, r.pk)
	res, err := tx.ExecContext(ctx, q, days, id)
	if err != nil {
		return time.Time{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return time.Time{}, err
	} else if n == 0 {
		return time.Time{}, ErrNotFound
	}

	var expiry time.Time
	sel := fmt.Sprintf("SELECT vip_expire_time FROM users WHERE %s=?", r.pk)
	if err := tx.QueryRowContext(ctx, sel, id).Scan(&expiry); err != nil {
		return time.Time{}, err
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, err
	}
	return expiry, nil
}

// Delete removes a user row. ErrNotFound when the id does not exist.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	q := fmt.Sprintf("DELETE FROM users WHERE %s=?", r.pk)
	res, err := r.DB.ExecContext(ctx, q, id)
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
