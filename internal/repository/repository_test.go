package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"weatherlog/internal/db"
	apperrors "weatherlog/internal/errors"
	"weatherlog/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func createUser(t *testing.T, repo UserRepository, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func newRecord(userID uuid.UUID, location string, createdAt time.Time) *model.WeatherRecord {
	return &model.WeatherRecord{
		UserID:       userID,
		Location:     location,
		StartDate:    model.NewDate(createdAt),
		EndDate:      model.NewDate(createdAt.Add(24 * time.Hour)),
		WeatherData:  datatypes.JSON(`{"location":"` + location + `","forecast":[]}`),
		LocationData: datatypes.JSON(`{"city":"` + location + `"}`),
		CreatedAt:    createdAt,
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	alice := createUser(t, repo, "alice")

	t.Run("find by username or email", func(t *testing.T) {
		byName, err := repo.FindByLogin(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byName.ID)

		byEmail, err := repo.FindByLogin(ctx, "ALICE@Example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byEmail.ID)

		_, err = repo.FindByLogin(ctx, "nobody")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", found.Username)

		_, err = repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		exists, err := repo.ExistsByUsernameOrEmail(ctx, "someone", "Alice@example.com")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByUsernameOrEmail(ctx, "someone", "someone@example.com")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("duplicate insert", func(t *testing.T) {
		err := repo.Create(ctx, &model.User{Username: "alice", Email: "other@example.com", PasswordHash: "hash"})
		assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
	})
}

func TestRecordRepository_OwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	users := NewUserRepository(gdb)
	records := NewRecordRepository(gdb)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	record := newRecord(alice.ID, "Paris", time.Now().UTC())
	require.NoError(t, records.Create(ctx, record))

	found, err := records.FindByIDForUser(ctx, record.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", found.Location)

	_, err = records.FindByIDForUser(ctx, record.ID, bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)

	err = records.DeleteForUser(ctx, record.ID, bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)

	stolen := *record
	stolen.UserID = bob.ID
	stolen.Location = "Berlin"
	err = records.Save(ctx, &stolen)
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)

	found, err = records.FindByIDForUser(ctx, record.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", found.Location)

	require.NoError(t, records.DeleteForUser(ctx, record.ID, alice.ID))
	_, err = records.FindByIDForUser(ctx, record.ID, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrRecordNotFound)
}

func TestRecordRepository_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	alice := createUser(t, NewUserRepository(gdb), "alice")
	records := NewRecordRepository(gdb)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	record := newRecord(alice.ID, "Paris", start)
	require.NoError(t, records.Create(ctx, record))

	record.Location = "Berlin"
	record.StartDate = model.NewDate(start.AddDate(0, 0, 2))
	record.EndDate = model.NewDate(start.AddDate(0, 0, 3))
	record.WeatherData = datatypes.JSON(`{"location":"Berlin","forecast":[{}]}`)
	record.UpdatedAt = time.Now().UTC()
	require.NoError(t, records.Save(ctx, record))

	found, err := records.FindByIDForUser(ctx, record.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", found.Location)
	assert.Equal(t, "2024-06-03", found.StartDate.String())
	assert.Equal(t, "2024-06-04", found.EndDate.String())
	assert.Equal(t, 1, found.SampleCount())
}

func TestRecordRepository_Pagination(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	alice := createUser(t, NewUserRepository(gdb), "alice")
	records := NewRecordRepository(gdb)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		require.NoError(t, records.Create(ctx, newRecord(alice.ID, "City", base.Add(time.Duration(i)*time.Minute))))
	}

	first, total, err := records.ListByUser(ctx, alice.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	require.Len(t, first, 10)
	assert.True(t, first[0].CreatedAt.After(first[9].CreatedAt), "newest first")

	last, total, err := records.ListByUser(ctx, alice.ID, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, last, 5)

	all, err := records.ListAllByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, all, 25)
	assert.Equal(t, first[0].ID, all[0].ID)
}

func TestRecordRepository_TiesOrderedByID(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	alice := createUser(t, NewUserRepository(gdb), "alice")
	records := NewRecordRepository(gdb)

	createdAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, records.Create(ctx, newRecord(alice.ID, "Same", createdAt)))
	}

	all, err := records.ListAllByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].ID.String(), all[i].ID.String())
	}
}
