package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sittichok/user-service/internal/domain/entity"
	"github.com/sittichok/user-service/internal/domain/repository"
)

func TestUserRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	u, err := repo.Create(ctx, "Alice", "alice@x.com", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID != 1 || u.Role != entity.RoleMember {
		t.Fatalf("unexpected user %+v", u)
	}

	byEmail, err := repo.GetByEmail(ctx, "alice@x.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetByEmail = %+v, %v", byEmail, err)
	}
	byID, err := repo.GetByID(ctx, u.ID)
	if err != nil || byID.Email != "alice@x.com" {
		t.Fatalf("GetByID = %+v, %v", byID, err)
	}

	if _, err := repo.GetByEmail(ctx, "Alice@x.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("email lookup should be case-sensitive, got %v", err)
	}
	if _, err := repo.GetByID(ctx, 42); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetByID(42) err = %v", err)
	}
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	if _, err := repo.Create(ctx, "Alice", "alice@x.com", "h1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Create(ctx, "Alice Again", "alice@x.com", "h2"); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("second create err = %v", err)
	}
	if repo.Count() != 1 {
		t.Fatalf("count = %d", repo.Count())
	}
}

func TestUserRepositoryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, "Racer", "race@x.com", "hash")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, repository.ErrDuplicateEmail):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if created != 1 || repo.Count() != 1 {
		t.Fatalf("created = %d, count = %d", created, repo.Count())
	}
}

func TestOutboxRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository()

	id1, _ := repo.Add(ctx, entity.EventUserCreated, []byte(`{"id":1}`), "broker down")
	id2, _ := repo.Add(ctx, entity.EventUserCreated, []byte(`{"id":2}`), "broker down")

	pending, err := repo.Pending(ctx, 10)
	if err != nil || len(pending) != 2 || pending[0].ID != id1 {
		t.Fatalf("pending = %+v, %v", pending, err)
	}

	if err := repo.MarkFailed(ctx, id1, "still down"); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkSent(ctx, id2); err != nil {
		t.Fatal(err)
	}

	pending, _ = repo.Pending(ctx, 10)
	if len(pending) != 1 || pending[0].ID != id1 || pending[0].Attempts != 2 || pending[0].LastError != "still down" {
		t.Fatalf("pending after updates = %+v", pending)
	}
	if err := repo.MarkSent(ctx, 99); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("MarkSent(99) = %v", err)
	}
}
