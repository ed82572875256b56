// Package queue defines message payloads exchanged over the message broker
// and the background consumer that processes them.
package queue

// VIPActivatedEvent is published after a code redemption commits. It
// carries enough for downstream consumers to notify or audit without
// querying the primary database.
type VIPActivatedEvent struct {
	UserID      uint64 `json:"user_id"`
	Username    string `json:"username"`
	Code        string `json:"code"`
	DaysAdded   int    `json:"days_added"`
	NewExpiry   string `json:"new_expiry"`
	ActivatedAt string `json:"activated_at"`
}
