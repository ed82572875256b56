package model

import "time"

// ActivationCode mirrors the `activation_codes` table. A code moves from
// unused to used exactly once; UsedBy is written in the same statement
// that flips IsUsed and neither field is ever reset.
type ActivationCode struct {
	ID           uint64     // activation_codes.id
	Code         string     // activation_codes.code (unique token)
	DurationDays int        // activation_codes.duration_days (0 on legacy rows)
	IsUsed       bool       // activation_codes.is_used
	UsedBy       *string    // activation_codes.used_by (nullable until redeemed)
	UsedAt       *time.Time // activation_codes.used_at (nullable)
	CreatedAt    time.Time  // activation_codes.created_at
}

// CodeSummary is the admin listing shape for activation codes.
type CodeSummary struct {
	ID           uint64     `json:"id"`
	Code         string     `json:"code"`
	DurationDays int        `json:"duration_days"`
	IsUsed       bool       `json:"is_used"`
	UsedBy       *string    `json:"used_by"`
	UsedAt       *time.Time `json:"used_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// EmailCode mirrors the `email_code_temp` table, the log of verification
// codes sent during registration. This service only reads it; rows are
// written by the external registration flow.
type EmailCode struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
