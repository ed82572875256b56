package model

import "time"

// User represents a row in the `users` table. The physical primary key
// column may be named `id` or `user_id` depending on which generation of
// the schema the deployment carries; the repository aliases it so that
// this struct always sees it as ID.
//
// IsActive is the *stored* VIP flag. It is advisory on its own: the
// effective activity reported to callers is always recomputed against
// VIPExpireTime (see internal/vip). An expired row may still carry
// IsActive = true in storage.
type User struct {
	ID            uint64     // users.id (or users.user_id, aliased)
	Username      string     // users.username
	Email         string     // users.email
	PasswordHash  string     // users.password_hash (opaque comparison string)
	Role          string     // users.role ("user" | "admin", free text in storage)
	IsActive      bool       // users.is_active (stored flag, not effective activity)
	VIPExpireTime *time.Time // users.vip_expire_time (nullable)
	CreatedAt     time.Time  // users.created_at
	UpdatedAt     time.Time  // users.updated_at
}

// UserSummary is the shape returned by admin listings. It carries the
// effective activity, never the stored flag, and never the password hash.
type UserSummary struct {
	ID            uint64     `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"is_active"`
	VIPExpireTime *time.Time `json:"vip_expire_time"`
	CreatedAt     time.Time  `json:"created_at"`
}
