// Package domain contains core concepts of the chat system.
// This file defines User entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type UserID int64

// User is a registered account. Username is unique and never changes once created.
// PasswordHash is owned by the protection layer and never leaves the server.
type User struct {
	ID           UserID
	Username     string
	PasswordHash string
	Email        *string
	IsOnline     bool
	CreatedAt    time.Time
	LastSeen     *time.Time
}
