package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/atomicstack/wiggle-chat/internal/chat"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteRoundTripsInOrder(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	for i, body := range []string{"one", "two", "three"} {
		if _, err := store.Insert(ctx, chat.Message{ID: int64(i + 1), Author: "Sam", Body: body, Published: true}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	for i, want := range []string{"one", "two", "three"} {
		if got[i].Body != want || got[i].Author != "Sam" || !got[i].Published {
			t.Fatalf("row %d mismatch: %+v", i, got[i])
		}
	}
}

func TestSQLiteAllowsDuplicateIDs(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	for _, body := range []string{"first", "second"} {
		if _, err := store.Insert(ctx, chat.Message{ID: 42, Author: "Sam", Body: body}); err != nil {
			t.Fatalf("insert duplicate id: %v", err)
		}
	}
	got, _ := store.Get(ctx)
	if len(got) != 2 {
		t.Fatalf("expected both rows kept, got %+v", got)
	}
}

func TestSQLiteAssignsSequence(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	var seqs []int64
	for _, body := range []string{"first", "second", "third"} {
		stored, err := store.Insert(ctx, chat.Message{ID: 42, Author: "Sam", Body: body})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		seqs = append(seqs, stored.Seq)
	}
	if seqs[0] < 1 || seqs[1] != seqs[0]+1 || seqs[2] != seqs[1]+1 {
		t.Fatalf("expected increasing sequence, got %v", seqs)
	}
	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for i, msg := range got {
		if msg.Seq != seqs[i] {
			t.Fatalf("row %d: expected seq %d, got %d", i, seqs[i], msg.Seq)
		}
	}
}

func TestMemoryAssignsSequence(t *testing.T) {
	store := NewMemory(chat.Message{ID: 9, Author: "a", Body: "seed"})
	stored, err := store.Insert(context.Background(), chat.Message{ID: 9, Author: "a", Body: "new"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if stored.Seq != 2 {
		t.Fatalf("expected seq 2 after one seed row, got %d", stored.Seq)
	}
	got, _ := store.Get(context.Background())
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Fatalf("unexpected sequences %+v", got)
	}
}

func TestSQLiteBlankAuthorStoredAsAnonymous(t *testing.T) {
	store := openTestSQLite(t)
	stored, err := store.Insert(context.Background(), chat.Message{ID: 1, Author: " ", Body: "hi"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if stored.Author != chat.AnonymousAuthor {
		t.Fatalf("expected anonymous author, got %q", stored.Author)
	}
}

func TestSQLiteConcurrentInserts(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Insert(ctx, chat.Message{ID: int64(i), Author: "x", Body: "y"}); err != nil {
				t.Errorf("insert %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	got, _ := store.Get(ctx)
	if len(got) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(got))
	}
}

func TestSQLiteReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chat.db")
	ctx := context.Background()
	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Insert(ctx, chat.Message{ID: 7, Author: "Sam", Body: "kept"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	store.Close()

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, _ := reopened.Get(ctx)
	if len(got) != 1 || got[0].Body != "kept" {
		t.Fatalf("expected persisted row, got %+v", got)
	}
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory(chat.Message{ID: 1, Author: "a", Body: "seed"})
	ctx := context.Background()
	if _, err := store.Insert(ctx, chat.Message{ID: 2, Author: "b", Body: "new"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, _ := store.Get(ctx)
	if len(got) != 2 || got[0].Body != "seed" || got[1].Body != "new" {
		t.Fatalf("unexpected rows: %+v", got)
	}
	got[0].Body = "mutated"
	again, _ := store.Get(ctx)
	if again[0].Body != "seed" {
		t.Fatalf("Get must return a copy")
	}
	store.Close()
	if _, err := store.Get(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestByAuthor(t *testing.T) {
	msgs := []chat.Message{
		{ID: 1, Author: "Sam", Body: "a"},
		{ID: 2, Author: "Anonymous", Body: "b"},
		{ID: 3, Author: "Sam", Body: "c"},
	}
	got := ByAuthor(msgs, "Sam")
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("unexpected filter result: %+v", got)
	}
}
