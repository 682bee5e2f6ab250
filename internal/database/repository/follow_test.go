package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/artur/social-points-bot/internal/database/models"
	"github.com/artur/social-points-bot/internal/database/repository"
)

func TestStore_CreditPoints(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()

	user, _ := store.UpsertUser(ctx, 100, "alice")

	total, err := store.CreditPoints(ctx, 100, 10, "YouTube")
	if err != nil {
		t.Fatalf("Failed to credit points: %v", err)
	}
	if total != 10 {
		t.Errorf("Expected total 10, got %d", total)
	}

	total, err = store.CreditPoints(ctx, 100, 10, "YouTube")
	if err != nil {
		t.Fatalf("Failed to credit points: %v", err)
	}
	if total != 20 {
		t.Errorf("Expected total 20, got %d", total)
	}

	count, err := store.Follows.GetUserFollowCount(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Failed to get follow count: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 follow rows, got %d", count)
	}
}

func TestStore_CreditPoints_UnknownUser(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.CreditPoints(ctx, 404, 10, "TikTok"); err != repository.ErrUserNotFound {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	count, _ := store.Users.GetTotalUsers(ctx, db)
	if count != 0 {
		t.Errorf("Credit must not create users, got %d", count)
	}
}

func TestFollowRepository_GetPopularPlatforms(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user, _ := repository.NewUserRepository().Upsert(ctx, db, 12345, "test")
	follows := repository.NewFollowRepository()

	for _, platform := range []string{"YouTube", "YouTube", "YouTube", "TikTok", "TikTok", "Facebook"} {
		err := follows.RecordFollow(ctx, db, &models.PlatformFollow{
			UserID:    user.ID,
			Platform:  platform,
			Reward:    10,
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("Failed to record follow: %v", err)
		}
	}

	popular, err := follows.GetPopularPlatforms(ctx, db, 2)
	if err != nil {
		t.Fatalf("Failed to get popular platforms: %v", err)
	}

	if len(popular) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(popular))
	}
	if popular[0].Platform != "YouTube" || popular[0].Count != 3 {
		t.Errorf("Expected YouTube x3 first, got %+v", popular[0])
	}
	if popular[1].Platform != "TikTok" {
		t.Errorf("Expected TikTok second, got %s", popular[1].Platform)
	}
}
