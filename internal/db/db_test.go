package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/resonarr/backend/internal/database"
	"github.com/resonarr/backend/internal/db"
)

func openTestDB(t *testing.T) *db.Queries {
	t.Helper()
	sqlDB, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.RunMigrations(sqlDB); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return db.New(sqlDB)
}

func TestUserLifecycle(t *testing.T) {
	q := openTestDB(t)
	ctx := context.Background()

	user, err := q.CreateUser(ctx, db.CreateUserParams{
		Username:     "alex",
		PasswordHash: "hash",
		IsAdmin:      true,
	})
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	if !user.IsActive {
		t.Error("new users start active")
	}

	got, err := q.GetUserByUsername(ctx, "alex")
	if err != nil || got.ID != user.ID || !got.IsAdmin {
		t.Fatalf("GetUserByUsername() = %+v, %v", got, err)
	}

	if err := q.UpdateUserProfile(ctx, db.UpdateUserProfileParams{LastfmUsername: "listener42", ID: user.ID}); err != nil {
		t.Fatal(err)
	}
	got, err = q.GetUserByID(ctx, user.ID)
	if err != nil || got.LastfmUsername != "listener42" {
		t.Fatalf("profile update not persisted: %+v, %v", got, err)
	}

	admins, err := q.CountActiveAdmins(ctx)
	if err != nil || admins != 1 {
		t.Fatalf("CountActiveAdmins() = %d, %v; want 1", admins, err)
	}

	if err := q.DeleteUser(ctx, user.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := q.GetUserByID(ctx, user.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("deleted user lookup error = %v, want sql.ErrNoRows", err)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	q := openTestDB(t)
	ctx := context.Background()

	if _, err := q.CreateUser(ctx, db.CreateUserParams{Username: "alex", PasswordHash: "h"}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.CreateUser(ctx, db.CreateUserParams{Username: "alex", PasswordHash: "h"}); err == nil {
		t.Fatal("duplicate username must be rejected by the unique constraint")
	}
}

func TestArtistRequestFlow(t *testing.T) {
	q := openTestDB(t)
	ctx := context.Background()

	requester, err := q.CreateUser(ctx, db.CreateUserParams{Username: "friend", PasswordHash: "h"})
	if err != nil {
		t.Fatal(err)
	}
	admin, err := q.CreateUser(ctx, db.CreateUserParams{Username: "admin", PasswordHash: "h", IsAdmin: true})
	if err != nil {
		t.Fatal(err)
	}

	req, err := q.CreateArtistRequest(ctx, db.CreateArtistRequestParams{
		UserID:     requester.ID,
		ArtistName: "Slowdive",
	})
	if err != nil {
		t.Fatalf("CreateArtistRequest() error: %v", err)
	}
	if req.Status != db.RequestStatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}

	pending, err := q.CountPendingRequestsForArtist(ctx, "slowdive")
	if err != nil || pending != 1 {
		t.Fatalf("CountPendingRequestsForArtist() = %d, %v; want 1 (case-insensitive)", pending, err)
	}

	rows, err := q.ListArtistRequests(ctx)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListArtistRequests() = %d rows, %v", len(rows), err)
	}
	if rows[0].Username != "friend" {
		t.Errorf("row username = %q, want the requester's name", rows[0].Username)
	}

	changed, err := q.ResolveArtistRequest(ctx, db.ResolveArtistRequestParams{
		Status:     db.RequestStatusApproved,
		ResolvedBy: admin.ID,
		ID:         req.ID,
	})
	if err != nil || changed != 1 {
		t.Fatalf("ResolveArtistRequest() = %d, %v; want one row changed", changed, err)
	}

	// A second resolution attempt finds nothing pending.
	changed, err = q.ResolveArtistRequest(ctx, db.ResolveArtistRequestParams{
		Status:     db.RequestStatusRejected,
		ResolvedBy: admin.ID,
		ID:         req.ID,
	})
	if err != nil || changed != 0 {
		t.Fatalf("second resolve = %d, %v; want zero rows changed", changed, err)
	}

	got, err := q.GetArtistRequest(ctx, req.ID)
	if err != nil || got.Status != db.RequestStatusApproved {
		t.Fatalf("final status = %q, %v; want approved", got.Status, err)
	}
	if !got.ResolvedBy.Valid || got.ResolvedBy.Int64 != admin.ID {
		t.Errorf("resolved_by = %+v, want the admin's ID", got.ResolvedBy)
	}
}
