package repository

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
)

func TestPostgresSessionRepo_ImplementsStore(t *testing.T) {
	var _ scs.Store = (*PostgresSessionRepo)(nil)
	var _ scs.CtxStore = (*PostgresSessionRepo)(nil)
}

func TestPostgresSessionRepo_CommitFindDelete(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresSessionRepo(db)
	ctx := context.Background()

	if err := repo.CommitCtx(ctx, "token-1", []byte("payload"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CommitCtx returned error: %v", err)
	}

	data, found, err := repo.FindCtx(ctx, "token-1")
	if err != nil {
		t.Fatalf("FindCtx returned error: %v", err)
	}
	if !found || !bytes.Equal(data, []byte("payload")) {
		t.Fatalf("FindCtx = (%q, %v), want (payload, true)", data, found)
	}

	// 同じトークンへのCommitは上書きになる
	if err := repo.Commit("token-1", []byte("updated"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	data, _, _ = repo.Find("token-1")
	if !bytes.Equal(data, []byte("updated")) {
		t.Errorf("data = %q, want %q", data, "updated")
	}

	if err := repo.Delete("token-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	_, found, err = repo.FindCtx(ctx, "token-1")
	if err != nil {
		t.Fatalf("FindCtx returned error: %v", err)
	}
	if found {
		t.Error("session should be deleted")
	}
}

func TestPostgresSessionRepo_FindCtx_ExpiredIsNotFound(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresSessionRepo(db)
	ctx := context.Background()

	if err := repo.CommitCtx(ctx, "expired", []byte("x"), time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("CommitCtx returned error: %v", err)
	}

	_, found, err := repo.FindCtx(ctx, "expired")
	if err != nil {
		t.Fatalf("FindCtx returned error: %v", err)
	}
	if found {
		t.Error("expired session should not be found")
	}
}

func TestPostgresSessionRepo_DeleteExpired(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresSessionRepo(db)
	ctx := context.Background()
	now := time.Now()

	fixtures := map[string]time.Time{
		"old-1": now.Add(-2 * time.Hour),
		"old-2": now.Add(-time.Minute),
		"live":  now.Add(time.Hour),
	}
	for token, expiry := range fixtures {
		if err := repo.CommitCtx(ctx, token, []byte("x"), expiry); err != nil {
			t.Fatalf("CommitCtx(%s) returned error: %v", token, err)
		}
	}

	deleted, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired returned error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	if _, found, _ := repo.FindCtx(ctx, "live"); !found {
		t.Error("live session should remain")
	}
}
