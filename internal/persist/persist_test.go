package persist

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/steerrt/agentrt/pkg/types"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_PutAndGetSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	header := types.SessionHeader{ID: "s1", Title: "hello", CreatedAt: 1, UpdatedAt: 2}
	if err := db.PutSession(ctx, header); err != nil {
		t.Fatalf("PutSession: %v", err)
	}

	got, err := db.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !reflect.DeepEqual(got, header) {
		t.Fatalf("expected %+v, got %+v", header, got)
	}
}

func TestDB_GetSessionNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetSession(context.Background(), "missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDB_PutSessionUpsertsOnConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.PutSession(ctx, types.SessionHeader{ID: "s1", Title: "first", CreatedAt: 1, UpdatedAt: 1}); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	if err := db.PutSession(ctx, types.SessionHeader{ID: "s1", Title: "second", CreatedAt: 1, UpdatedAt: 2}); err != nil {
		t.Fatalf("PutSession update: %v", err)
	}

	got, err := db.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Title != "second" || got.UpdatedAt != 2 {
		t.Fatalf("expected upsert to take the latest title/updatedAt, got %+v", got)
	}
}

func TestDB_ListSessionsOrdersByUpdatedAtDesc(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.PutSession(ctx, types.SessionHeader{ID: "old", Title: "old", CreatedAt: 1, UpdatedAt: 1})
	db.PutSession(ctx, types.SessionHeader{ID: "new", Title: "new", CreatedAt: 1, UpdatedAt: 5})

	headers, err := db.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(headers) != 2 || headers[0].ID != "new" || headers[1].ID != "old" {
		t.Fatalf("expected newest-updated first, got %+v", headers)
	}
}

func TestDB_PutAndListMessagesOrdersByTimestamp(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.PutMessage(ctx, types.Message{SessionID: "s1", ID: "m2", Timestamp: 20, Role: types.RoleAssistant})
	db.PutMessage(ctx, types.Message{SessionID: "s1", ID: "m1", Timestamp: 10, Role: types.RoleUser})

	msgs, err := db.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("expected messages ordered by timestamp, got %+v", msgs)
	}
}

func TestDB_ListMessagesScopedToSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.PutMessage(ctx, types.Message{SessionID: "s1", ID: "m1", Timestamp: 1, Role: types.RoleUser})
	db.PutMessage(ctx, types.Message{SessionID: "s2", ID: "m1", Timestamp: 1, Role: types.RoleUser})

	msgs, err := db.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].SessionID != "s1" {
		t.Fatalf("expected only s1's message, got %+v", msgs)
	}
}

func TestDB_DeleteSessionRemovesHeaderAndMessages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.PutSession(ctx, types.SessionHeader{ID: "s1", Title: "x", CreatedAt: 1, UpdatedAt: 1})
	db.PutMessage(ctx, types.Message{SessionID: "s1", ID: "m1", Timestamp: 1, Role: types.RoleUser})

	if err := db.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	if _, err := db.GetSession(ctx, "s1"); err != ErrNotFound {
		t.Fatalf("expected header to be gone, got %v", err)
	}
	msgs, err := db.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages after delete, got %+v", msgs)
	}
}

func TestOpen_IsIdempotentAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	db1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db1.PutSession(context.Background(), types.SessionHeader{ID: "s1", Title: "x", CreatedAt: 1, UpdatedAt: 1}); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	db1.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer db2.Close()

	header, err := db2.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSession after reopen: %v", err)
	}
	if header.Title != "x" {
		t.Fatalf("expected data to survive reopen, got %+v", header)
	}
}
