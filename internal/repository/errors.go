// Package repository implements MySQL access for users, activation codes,
// email verification logs and refresh tokens. Sentinel errors defined here
// let the service layer map storage outcomes onto its own taxonomy without
// inspecting SQL error strings.
package repository

import "errors"

// ErrNotFound is returned when a targeted row does not exist, e.g. updating
// or deleting a user by an unknown id.
var ErrNotFound = errors.New("not found")

// ErrCodeUnavailable is returned by CodeRepo.Consume when the code either
// does not exist or has already been used. The two cases are deliberately
// indistinguishable.
var ErrCodeUnavailable = errors.New("code invalid or already used")
