package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate brings the schema up to date. It runs once at startup and every
// statement is idempotent, replacing the old habit of issuing
// ALTER TABLE ... ADD COLUMN on each request and swallowing the failure.
//
// usersPK names the primary key column of the users table (`id` on current
// deployments, `user_id` on the oldest ones); the table is only created
// with that column when it does not exist yet, existing tables are left
// untouched.
func Migrate(ctx context.Context, db *sql.DB, usersPK string) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
			%s BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(16) NOT NULL DEFAULT 'user',
			is_active TINYINT(1) NOT NULL DEFAULT 0,
			vip_expire_time DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_users_username (username),
			KEY idx_users_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, usersPK),
		`CREATE TABLE IF NOT EXISTS activation_codes (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			code VARCHAR(64) NOT NULL,
			duration_days INT NOT NULL DEFAULT 0,
			is_used TINYINT(1) NOT NULL DEFAULT 0,
			used_by VARCHAR(64) NULL,
			used_at DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_activation_codes_code (code),
			KEY idx_activation_codes_used (is_used)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS email_code_temp (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			code VARCHAR(16) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_email_code_temp_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			token_hash CHAR(64) NOT NULL,
			expires_at DATETIME NOT NULL,
			revoked_at DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_refresh_tokens_hash (token_hash),
			KEY idx_refresh_tokens_user (user_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Columns that older schemas lack. information_schema is consulted so
	// the ALTER only runs when the column is genuinely missing.
	addColumns := []struct{ table, column, ddl string }{
		{"users", "vip_expire_time", "ALTER TABLE users ADD COLUMN vip_expire_time DATETIME NULL"},
		{"activation_codes", "used_by", "ALTER TABLE activation_codes ADD COLUMN used_by VARCHAR(64) NULL"},
		{"activation_codes", "used_at", "ALTER TABLE activation_codes ADD COLUMN used_at DATETIME NULL"},
	}
	for _, ac := range addColumns {
		var n int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.columns
			 WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?`,
			ac.table, ac.column).Scan(&n)
		if err != nil {
			return fmt.Errorf("migrate: probe %s.%s: %w", ac.table, ac.column, err)
		}
		if n == 0 {
			if _, err := db.ExecContext(ctx, ac.ddl); err != nil {
				return fmt.Errorf("migrate: add %s.%s: %w", ac.table, ac.column, err)
			}
		}
	}
	return nil
}
