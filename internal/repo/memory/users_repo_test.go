package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/autocabinet/internal/domain/user"
)

func strPtr(s string) *string { return &s }

func TestUsersRepo_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	u, err := repo.Create(ctx, user.CreateParams{Login: "ivan", Email: "ivan@example.com", PasswordHash: "hash", Name: strPtr("Ivan")})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if u.ID != 1 {
		t.Fatalf("expected first id to be 1, got %d", u.ID)
	}

	byLogin, err := repo.GetByLogin(ctx, "ivan")
	if err != nil || byLogin.ID != u.ID {
		t.Fatalf("GetByLogin = %+v, %v", byLogin, err)
	}

	byEmail, err := repo.GetByEmail(ctx, "ivan@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetByEmail = %+v, %v", byEmail, err)
	}

	loginExists, emailExists, err := repo.Exists(ctx, "ivan", "other@example.com")
	if err != nil || !loginExists || emailExists {
		t.Fatalf("Exists = %v %v %v", loginExists, emailExists, err)
	}
}

func TestUsersRepo_CreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	if _, err := repo.Create(ctx, user.CreateParams{Login: "ivan", Email: "ivan@example.com"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := repo.Create(ctx, user.CreateParams{Login: "ivan", Email: "x@example.com"}); !errors.Is(err, user.ErrLoginTaken) {
		t.Fatalf("expected ErrLoginTaken, got %v", err)
	}
	if _, err := repo.Create(ctx, user.CreateParams{Login: "petr", Email: "ivan@example.com"}); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUsersRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepo()

	a, _ := repo.Create(ctx, user.CreateParams{Login: "ivan", Email: "ivan@example.com"})
	_, _ = repo.Create(ctx, user.CreateParams{Login: "petr", Email: "petr@example.com"})

	updated, err := repo.Update(ctx, a.ID, user.UpdateParams{Phone: strPtr("+7 700 000 00 00")})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Phone == nil || *updated.Phone != "+7 700 000 00 00" {
		t.Fatalf("phone not updated: %+v", updated)
	}
	if !updated.CreatedAt.Equal(a.CreatedAt) {
		t.Fatalf("createdAt must not change")
	}

	if _, err := repo.Update(ctx, a.ID, user.UpdateParams{Email: strPtr("petr@example.com")}); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	// keeping your own login is not a conflict
	if _, err := repo.Update(ctx, a.ID, user.UpdateParams{Login: strPtr("ivan")}); err != nil {
		t.Fatalf("self login update should pass: %v", err)
	}

	if _, err := repo.Update(ctx, 999, user.UpdateParams{Name: strPtr("x")}); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
