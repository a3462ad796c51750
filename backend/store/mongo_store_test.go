package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"usuarios/backend/models"
	"usuarios/backend/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setupMongo connects to MONGO_TEST_URI and returns a fresh database that
// is dropped when the test ends.
func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("usuarios_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestMongoUserStore(t *testing.T) {
	db := setupMongo(t)
	s := store.NewMongoUserStore(db)
	ctx := context.Background()
	require.NoError(t, s.EnsureIndexes(ctx))

	user := newUser("ana", "a@x.com")
	require.NoError(t, s.Create(ctx, user))
	assert.Len(t, user.ID, 24)

	t.Run("duplicate email", func(t *testing.T) {
		err := s.Create(ctx, newUser("otra", "a@x.com"))
		assert.ErrorIs(t, err, store.ErrDuplicateKey)
	})

	t.Run("find", func(t *testing.T) {
		got, err := s.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "ana", got.Username)
		assert.Equal(t, &models.Progress{}, got.Progress)
		assert.NotNil(t, got.Badges)

		_, err = s.FindByEmail(ctx, "a@x.com")
		assert.NoError(t, err)
		_, err = s.FindByUsername(ctx, "ana")
		assert.NoError(t, err)

		_, err = s.FindByID(ctx, "not-an-object-id")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.FindByID(ctx, "000000000000000000000000")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("update partial", func(t *testing.T) {
		name := "ana2"
		got, err := s.UpdatePartial(ctx, user.ID, models.UserUpdate{Username: &name})
		require.NoError(t, err)
		assert.Equal(t, "ana2", got.Username)
		assert.Equal(t, "a@x.com", got.Email)

		got, err = s.UpdatePartial(ctx, user.ID, models.UserUpdate{Progress: &models.Progress{CompletedActivities: 2, Percentage: 40}})
		require.NoError(t, err)
		assert.Equal(t, &models.Progress{CompletedActivities: 2, Percentage: 40}, got.Progress)
		assert.Equal(t, "ana2", got.Username)
	})

	t.Run("push badge", func(t *testing.T) {
		obtained := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, s.PushBadge(ctx, user.ID, models.Badge{BadgeID: "b1", DateObtained: obtained}))

		got, err := s.FindByID(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, got.Badges, 1)
		assert.Equal(t, "b1", got.Badges[0].BadgeID)
		assert.True(t, obtained.Equal(got.Badges[0].DateObtained))

		err = s.PushBadge(ctx, "000000000000000000000000", models.Badge{BadgeID: "b2"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("find all and delete", func(t *testing.T) {
		all, err := s.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		deleted, err := s.Delete(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, deleted.ID)

		_, err = s.Delete(ctx, user.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestMongoActivityCounter(t *testing.T) {
	db := setupMongo(t)
	counter := store.NewMongoActivityCounter(db)
	ctx := context.Background()

	_, err := db.Collection(store.ActivitiesCollection).InsertMany(ctx, []interface{}{
		bson.M{"titulo": "a"}, bson.M{"titulo": "b"},
	})
	require.NoError(t, err)

	total, err := counter.CountActivities(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
