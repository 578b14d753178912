package db

import (
	"database/sql"
	"time"
)

type User struct {
	ID             int64
	Username       string
	PasswordHash   string
	IsAdmin        bool
	IsActive       bool
	LastfmUsername string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ArtistRequest struct {
	ID         int64
	UserID     int64
	ArtistName string
	Status     string
	CreatedAt  time.Time
	ResolvedAt sql.NullTime
	ResolvedBy sql.NullInt64
}

// Artist request statuses.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)
