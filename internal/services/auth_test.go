package services

import (
	"context"
	"testing"

	"github.com/formdesk/server/pkg/utils"
)

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	service := NewAuthService(db)

	t.Run("register validates input", func(t *testing.T) {
		cases := []RegisterInput{
			{Email: "", Password: "secret1", Name: "A"},
			{Email: "a@test.com", Password: "123", Name: "A"},
			{Email: "not-an-email", Password: "secret1", Name: "A"},
		}
		for _, input := range cases {
			if _, err := service.Register(ctx, input); KindOf(err) != KindValidation {
				t.Fatalf("expected validation error for %+v, got %v", input, err)
			}
		}
	})

	user, err := service.Register(ctx, RegisterInput{Email: "Ann@Test.com", Password: "secret1", Name: "Ann"})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	t.Run("register stores a bcrypt hash and normalized email", func(t *testing.T) {
		if user.Email != "ann@test.com" {
			t.Fatalf("expected normalized email, got %q", user.Email)
		}
		if !utils.CheckPassword(user.PasswordHash, "secret1") {
			t.Fatal("expected stored hash to match the password")
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := service.Register(ctx, RegisterInput{Email: "ann@test.com", Password: "secret1", Name: "Other"})
		if KindOf(err) != KindConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("login", func(t *testing.T) {
		if got, err := service.Login(ctx, "ANN@test.com", "secret1"); err != nil || got.ID != user.ID {
			t.Fatalf("expected login to succeed, got %+v %v", got, err)
		}
		if _, err := service.Login(ctx, "ann@test.com", "wrong"); KindOf(err) != KindAuthRequired {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
		if _, err := service.Login(ctx, "nobody@test.com", "secret1"); KindOf(err) != KindAuthRequired {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
	})

	t.Run("profile update", func(t *testing.T) {
		other, err := service.Register(ctx, RegisterInput{Email: "bo@test.com", Password: "secret1", Name: "Bo"})
		if err != nil {
			t.Fatalf("Register() error: %v", err)
		}

		if _, err := service.UpdateProfile(ctx, user.ID, ProfileUpdate{}); KindOf(err) != KindValidation {
			t.Fatalf("expected validation error for empty update, got %v", err)
		}
		if _, err := service.UpdateProfile(ctx, user.ID, ProfileUpdate{Email: other.Email}); KindOf(err) != KindConflict {
			t.Fatalf("expected conflict for taken email, got %v", err)
		}

		updated, err := service.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: "Annie", Password: "newsecret"})
		if err != nil {
			t.Fatalf("UpdateProfile() error: %v", err)
		}
		if updated.Name != "Annie" || !utils.CheckPassword(updated.PasswordHash, "newsecret") {
			t.Fatalf("unexpected profile: %+v", updated)
		}
	})

	t.Run("missing profile", func(t *testing.T) {
		if _, err := service.Profile(ctx, 9999); KindOf(err) != KindNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}
