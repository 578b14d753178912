package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/resonarr/backend/internal/config"
	"github.com/resonarr/backend/internal/crypto"
	"github.com/resonarr/backend/internal/db"
)

// superadminPasswordWords is how many wordlist words make up a generated
// password.
const superadminPasswordWords = 4

// EnsureSuperadmin makes sure an admin account exists at startup. When no
// password is configured a memorable one is generated from the BIP-39
// wordlist and logged once, so a fresh install is reachable without editing
// the environment first.
func EnsureSuperadmin(ctx context.Context, queries *db.Queries, cfg *config.Config) error {
	existing, err := queries.GetUserByUsername(ctx, cfg.SuperadminUsername)
	switch {
	case err == nil:
		if !cfg.SuperadminReset {
			return nil
		}
		password, generated, err := superadminPassword(cfg)
		if err != nil {
			return err
		}
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hashing superadmin password: %w", err)
		}
		if err := queries.UpdateUserPassword(ctx, db.UpdateUserPasswordParams{
			PasswordHash: hash,
			ID:           existing.ID,
		}); err != nil {
			return fmt.Errorf("resetting superadmin password: %w", err)
		}
		logSuperadminPassword(cfg.SuperadminUsername, password, generated, "password reset")
		return nil

	case errors.Is(err, sql.ErrNoRows):
		password, generated, err := superadminPassword(cfg)
		if err != nil {
			return err
		}
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hashing superadmin password: %w", err)
		}
		if _, err := queries.CreateUser(ctx, db.CreateUserParams{
			Username:     cfg.SuperadminUsername,
			PasswordHash: hash,
			IsAdmin:      true,
		}); err != nil {
			return fmt.Errorf("creating superadmin: %w", err)
		}
		logSuperadminPassword(cfg.SuperadminUsername, password, generated, "account created")
		return nil

	default:
		return fmt.Errorf("looking up superadmin: %w", err)
	}
}

func superadminPassword(cfg *config.Config) (password string, generated bool, err error) {
	if cfg.SuperadminPassword != "" {
		return cfg.SuperadminPassword, false, nil
	}
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", false, fmt.Errorf("generating password entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", false, fmt.Errorf("generating password: %w", err)
	}
	words := strings.Fields(mnemonic)
	return strings.Join(words[:superadminPasswordWords], "-"), true, nil
}

func logSuperadminPassword(username, password string, generated bool, reason string) {
	if generated {
		// The only place this password appears. Logged, not stored.
		slog.Info("superadmin credentials",
			"reason", reason,
			"username", username,
			"password", password)
		return
	}
	slog.Info("superadmin ready", "reason", reason, "username", username)
}
