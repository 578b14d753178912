package models

import "time"

// Authentication
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type UpdateProfileRequest struct {
	LastfmUsername string `json:"lastfmUsername"`
}

// User management
type UserResponse struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	IsAdmin        bool      `json:"isAdmin"`
	IsActive       bool      `json:"isActive"`
	LastfmUsername string    `json:"lastfmUsername,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

type UpdateUserRequest struct {
	IsAdmin  *bool `json:"isAdmin,omitempty"`
	IsActive *bool `json:"isActive,omitempty"`
}

// Discovery actions; every action is scoped to one streaming connection.
type FetchLibraryRequest struct {
	ConnectionID string `json:"connectionId"`
	Checked      bool   `json:"checked"`
}

type StartDiscoveryRequest struct {
	ConnectionID string   `json:"connectionId"`
	Artists      []string `json:"artists"`
}

type ConnectionRequest struct {
	ConnectionID string `json:"connectionId"`
}

type ArtistActionRequest struct {
	ConnectionID string `json:"connectionId"`
	Artist       string `json:"artist"`
}

type PromptDiscoveryRequest struct {
	ConnectionID string `json:"connectionId"`
	Prompt       string `json:"prompt"`
}

type PersonalDiscoveryRequest struct {
	ConnectionID string `json:"connectionId"`
	Source       string `json:"source"`
}

type PreviewRequest struct {
	ConnectionID string `json:"connectionId"`
	Artist       string `json:"artist"`
	Track        string `json:"track,omitempty"`
}

type ArtistBioResponse struct {
	Artist  string `json:"artist"`
	Summary string `json:"summary"`
}

type AcceptedResponse struct {
	Status string `json:"status"`
}

// Artist request queue
type ArtistRequestResponse struct {
	ID         int64      `json:"id"`
	ArtistName string     `json:"artistName"`
	Status     string     `json:"status"`
	Username   string     `json:"username"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

type ResolveArtistRequestResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
