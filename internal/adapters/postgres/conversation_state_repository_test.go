package postgres

import (
	"FlashGrade/internal/core/domain"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestConversationStateRepository_CompareAndSwap(t *testing.T) {
	nopLogger := zerolog.Nop()
	repo := NewConversationStateRepository(testDB, &nopLogger)
	ctx := context.Background()
	id := newTelegramID()
	defer cleanupUser(t, id)

	fresh, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fresh.Revision != 0 || fresh.CurrentStep != domain.StepHome {
		t.Fatalf("expected fresh home state, got %+v", fresh)
	}

	fresh.Advance(domain.StepSelectLevel)
	fresh.Draft.Subject = ptr("Histoire moderne")
	if err := repo.Save(ctx, fresh); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if fresh.Revision != 1 {
		t.Errorf("revision after insert: got %d, want 1", fresh.Revision)
	}

	// A second writer that also started from revision 0 loses.
	stale := domain.NewConversationState(id)
	if err := repo.Save(ctx, stale); !errors.Is(err, domain.ErrStateConflict) {
		t.Errorf("concurrent insert: got %v, want ErrStateConflict", err)
	}

	loaded, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.CurrentStep != domain.StepSelectLevel || len(loaded.NavigationStack) != 1 || *loaded.Draft.Subject != "Histoire moderne" {
		t.Errorf("roundtrip mismatch: %+v", loaded)
	}

	loaded.Advance(domain.StepEnterLength)
	if err := repo.Save(ctx, loaded); err != nil {
		t.Fatalf("update Save: %v", err)
	}
	if loaded.Revision != 2 {
		t.Errorf("revision after update: got %d, want 2", loaded.Revision)
	}

	fresh.Advance(domain.StepSupport) // still at revision 1
	if err := repo.Save(ctx, fresh); !errors.Is(err, domain.ErrStateConflict) {
		t.Errorf("stale update: got %v, want ErrStateConflict", err)
	}
}
