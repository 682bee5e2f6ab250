package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/artur/social-points-bot/internal/config"
	"github.com/artur/social-points-bot/internal/database"
	"github.com/artur/social-points-bot/internal/database/repository"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(":memory:", config.PoolConfig{Size: 1})
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}

func setupTestStore(t *testing.T) (*repository.Store, *database.DB) {
	t.Helper()

	db := setupTestDB(t)
	return repository.NewStore(db, 5*time.Second), db
}

// setupConcurrentStore opens a file-backed database with a real pool so
// parallel callers get separate connections.
func setupConcurrentStore(t *testing.T) (*repository.Store, *database.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(path, config.PoolConfig{Size: 10, Overflow: 20})
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if maxOpen := db.Stats().MaxOpenConnections; maxOpen < 2 {
		t.Fatalf("Expected a multi-connection pool, got max open %d", maxOpen)
	}

	return repository.NewStore(db, 10*time.Second), db
}

func TestUserRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()

	// First insert
	user1, err := repo.Upsert(ctx, db, 12345, "testuser")
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}

	if user1 == nil {
		t.Fatal("Expected user to be returned")
	}
	if user1.ChatID != 12345 {
		t.Errorf("Expected chat_id 12345, got %d", user1.ChatID)
	}
	if user1.Handle != "testuser" {
		t.Errorf("Expected handle 'testuser', got %s", user1.Handle)
	}
	if user1.Points != 0 || user1.ReferralsCount != 0 {
		t.Errorf("Expected zero balances, got points=%d referrals=%d", user1.Points, user1.ReferralsCount)
	}

	// Update same user
	user2, err := repo.Upsert(ctx, db, 12345, "renamed")
	if err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}

	if user2.ID != user1.ID {
		t.Errorf("User ID should remain same, got %d vs %d", user2.ID, user1.ID)
	}
	if user2.Handle != "renamed" {
		t.Errorf("Expected handle 'renamed', got %s", user2.Handle)
	}

	stored, err := repo.GetByChatID(ctx, db, 12345)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if stored.Handle != "renamed" {
		t.Errorf("Expected stored handle 'renamed', got %s", stored.Handle)
	}
}

func TestUserRepository_Upsert_KeepsBalances(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()

	user, err := repo.Upsert(ctx, db, 1, "alice")
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	if _, err := repo.AddPoints(ctx, db, user.ID, 40); err != nil {
		t.Fatalf("Failed to add points: %v", err)
	}

	for i := 0; i < 3; i++ {
		again, err := repo.Upsert(ctx, db, 1, "alice")
		if err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
		if again.ID != user.ID {
			t.Errorf("Expected id %d, got %d", user.ID, again.ID)
		}
		if again.Points != 40 {
			t.Errorf("Upsert must not reset points, got %d", again.Points)
		}
	}
}

func TestUserRepository_Upsert_EmptyHandleKeepsStored(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()

	if _, err := repo.Upsert(ctx, db, 7, "bob"); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}

	user, err := repo.Upsert(ctx, db, 7, "")
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if user.Handle != "bob" {
		t.Errorf("Expected handle 'bob' to survive, got %q", user.Handle)
	}
}

func TestUserRepository_Upsert_NoHandle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()

	user, err := repo.Upsert(ctx, db, 9, "")
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	if user.Handle != "" {
		t.Errorf("Expected empty handle, got %q", user.Handle)
	}
}

func TestStore_UpsertUser_Concurrent(t *testing.T) {
	store, db := setupConcurrentStore(t)
	ctx := context.Background()

	const callers = 30
	start := make(chan struct{})
	var wg sync.WaitGroup
	ids := make([]int64, callers)
	errs := make([]error, callers)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			user, err := store.UpsertUser(ctx, 555, "racer")
			errs[i] = err
			if user != nil {
				ids[i] = user.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("Expected all upserts to return id %d, got %d", ids[0], ids[i])
		}
	}

	total, err := repository.NewUserRepository().GetTotalUsers(ctx, db)
	if err != nil {
		t.Fatalf("Failed to get total users: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected exactly 1 user row, got %d", total)
	}
}

func TestUserRepository_GetByChatID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()

	// Get non-existent user
	user, err := repo.GetByChatID(ctx, db, 99999)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("Expected nil for non-existent user")
	}

	// Insert and retrieve
	if _, err := repo.Upsert(ctx, db, 12345, "test"); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	user, err = repo.GetByChatID(ctx, db, 12345)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if user == nil || user.ChatID != 12345 {
		t.Errorf("Failed to retrieve correct user")
	}
}

func TestUserRepository_GetPoints_UnknownUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()

	points, err := repo.GetPoints(ctx, db, 424242)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if points != 0 {
		t.Errorf("Expected 0 points for unknown user, got %d", points)
	}

	count, err := repo.GetTotalUsers(ctx, db)
	if err != nil {
		t.Fatalf("Failed to get total users: %v", err)
	}
	if count != 0 {
		t.Errorf("GetPoints must not create users, got %d rows", count)
	}
}

func TestUserRepository_AddPoints_UnknownUser(t *testing.T) {
	db := setupTestDB(t)

	_, err := repository.NewUserRepository().AddPoints(context.Background(), db, 404, 10)
	if err != repository.ErrUserNotFound {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_TopByPoints(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()

	// a, b, c получают ID 1, 2, 3 по порядку регистрации
	balances := []struct {
		chatID int64
		handle string
		points int64
	}{
		{chatID: 10, handle: "a", points: 50},
		{chatID: 20, handle: "b", points: 50},
		{chatID: 30, handle: "c", points: 30},
	}
	for _, b := range balances {
		user, err := repo.Upsert(ctx, db, b.chatID, b.handle)
		if err != nil {
			t.Fatalf("Failed to insert %s: %v", b.handle, err)
		}
		if _, err := repo.AddPoints(ctx, db, user.ID, b.points); err != nil {
			t.Fatalf("Failed to add points: %v", err)
		}
	}

	top, err := repo.TopByPoints(ctx, db, 2)
	if err != nil {
		t.Fatalf("Failed to get leaderboard: %v", err)
	}

	if len(top) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(top))
	}
	if top[0].Handle != "a" || top[0].ID != 1 || top[0].Points != 50 {
		t.Errorf("Expected a(id=1,50) first, got %+v", top[0])
	}
	if top[1].Handle != "b" || top[1].ID != 2 || top[1].Points != 50 {
		t.Errorf("Expected b(id=2,50) second, got %+v", top[1])
	}

	all, err := repo.TopByPoints(ctx, db, 10)
	if err != nil {
		t.Fatalf("Failed to get leaderboard: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 results when fewer users than limit, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Points < cur.Points || (prev.Points == cur.Points && prev.ID > cur.ID) {
			t.Errorf("Leaderboard not ordered by (-points, +id) at %d: %+v before %+v", i, prev, cur)
		}
	}
}

func TestUserRepository_TopByReferrals(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()

	first, _ := repo.Upsert(ctx, db, 1, "first")
	second, _ := repo.Upsert(ctx, db, 2, "second")

	if err := repo.AddReferral(ctx, db, second.ID, 100); err != nil {
		t.Fatalf("Failed to add referral: %v", err)
	}

	top, err := repo.TopByReferrals(ctx, db, 10)
	if err != nil {
		t.Fatalf("Failed to get leaderboard: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(top))
	}
	if top[0].ID != second.ID || top[0].ReferralsCount != 1 || top[0].Points != 100 {
		t.Errorf("Expected second user on top, got %+v", top[0])
	}
	if top[1].ID != first.ID {
		t.Errorf("Expected first user second, got %+v", top[1])
	}
}

func TestUserRepository_TopByPoints_ClampsLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()
	for i := 0; i < 3; i++ {
		if _, err := repo.Upsert(ctx, db, int64(100+i), fmt.Sprintf("user%d", i)); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}

	top, err := repo.TopByPoints(ctx, db, 0)
	if err != nil {
		t.Fatalf("Failed to get leaderboard: %v", err)
	}
	if len(top) != 1 {
		t.Errorf("Expected limit 0 to clamp to 1, got %d rows", len(top))
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{name: "below minimum", limit: -5, expected: 1},
		{name: "zero", limit: 0, expected: 1},
		{name: "in range", limit: 10, expected: 10},
		{name: "maximum", limit: 100, expected: 100},
		{name: "above maximum", limit: 1000, expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repository.ClampLimit(tt.limit); got != tt.expected {
				t.Errorf("ClampLimit(%d) = %d, want %d", tt.limit, got, tt.expected)
			}
		})
	}
}

func TestUserRepository_GetTotalUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	repo := repository.NewUserRepository()

	// Initially zero
	count, err := repo.GetTotalUsers(ctx, db)
	if err != nil {
		t.Fatalf("Failed to get total users: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 users, got %d", count)
	}

	// Add users
	repo.Upsert(ctx, db, 1, "User1")
	repo.Upsert(ctx, db, 2, "User2")

	count, err = repo.GetTotalUsers(ctx, db)
	if err != nil {
		t.Fatalf("Failed to get total users: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 users, got %d", count)
	}
}
