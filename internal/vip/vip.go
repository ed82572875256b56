// Package vip holds the pure date/role arithmetic shared by the credential
// resolver and the activation code redeemer. Nothing here touches storage;
// the stored is_active flag and vip_expire_time column are combined at read
// time instead of being rewritten.
package vip

import (
	"strings"
	"time"
)

// Role values as stored in users.role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Active reports the effective VIP activity for a user: the stored flag AND
// (no expiry set OR expiry still in the future). An expired row that still
// carries a true stored flag is reported inactive without any write-back.
func Active(stored bool, expiry *time.Time, now time.Time) bool {
	if !stored {
		return false
	}
	if expiry == nil {
		return true
	}
	return expiry.After(now)
}

// RoleFor computes the effective role. The configured privileged identifier
// always wins: if it matches the user's username or email the role is admin
// regardless of what storage says. Otherwise the stored role is used, with
// an empty value defaulting to "user". The override is a pure function of
// the resolved identity; it is never persisted.
func RoleFor(username, email, stored, privileged string) string {
	if privileged != "" && (username == privileged || email == privileged) {
		return RoleAdmin
	}
	if r := strings.TrimSpace(stored); r != "" {
		return r
	}
	return RoleUser
}

// Extend returns the expiry after granting `days` VIP-days. The grant is
// additive from the later of now and the current expiry: redeeming while an
// earlier period is still running stacks on top of it, and redeeming after
// it lapsed (or with no expiry at all) counts from now.
func Extend(current *time.Time, now time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, 0, days)
}
