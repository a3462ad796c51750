package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"usuarios/backend/models"
	"usuarios/backend/services"
	"usuarios/backend/store"
	"usuarios/backend/testutil"
	"usuarios/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupService(t *testing.T, activities int) (*services.AccountService, *store.GormUserStore, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.SeedActivities(t, db, activities)
	users := store.NewGormUserStore(db)
	svc := services.NewAccountService(users, store.NewGormActivityCounter(db), testutil.TestJWTSecret)
	return svc, users, db
}

func register(t *testing.T, svc *services.AccountService, username, email, password string) *models.User {
	t.Helper()
	session, err := svc.Register(context.Background(), username, email, password)
	require.NoError(t, err)
	return session.User
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()

	session, err := svc.Register(ctx, "ana", "a@x.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	login, err := svc.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, models.RoleStudent, login.User.Role)
	assert.Equal(t, &models.Progress{}, login.User.Progress)
	assert.Empty(t, login.User.Badges)
	assert.NotNil(t, login.User.Badges)

	claims, err := utils.ParseJWTToken(login.Token, testutil.TestJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, claims.ID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	svc, users, _ := setupService(t, 0)
	register(t, svc, "ana", "a@x.com", "pw")

	stored, err := users.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", stored.Password)
	assert.NotEmpty(t, stored.Password)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, users, _ := setupService(t, 0)
	ctx := context.Background()
	register(t, svc, "ana", "a@x.com", "pw")

	_, err := svc.Register(ctx, "otra", "a@x.com", "pw2")
	assert.ErrorIs(t, err, services.ErrEmailTaken)

	all, err := users.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRegisterDuplicateKeyFromStore(t *testing.T) {
	// Simulates a concurrent registration winning between pre-check and insert.
	svc := services.NewAccountService(&racingStore{}, nil, testutil.TestJWTSecret)

	_, err := svc.Register(context.Background(), "ana", "a@x.com", "pw")
	assert.ErrorIs(t, err, services.ErrEmailTaken)
}

func TestRegisterPasswordLimitCountsBytes(t *testing.T) {
	svc, users, _ := setupService(t, 0)
	ctx := context.Background()

	// 40 characters, 80 bytes.
	_, err := svc.Register(ctx, "ana", "a@x.com", strings.Repeat("ñ", 40))
	assert.ErrorIs(t, err, services.ErrPasswordTooLong)

	all, err := users.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = svc.Register(ctx, "ana", "a@x.com", strings.Repeat("ñ", 36))
	assert.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	register(t, svc, "ana", "a@x.com", "pw")

	_, err := svc.Login(ctx, "nadie@x.com", "pw")
	assert.ErrorIs(t, err, services.ErrUserNotFound)

	_, err = svc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestGetUser(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	byID, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", byID.Username)

	byName, err := svc.GetUserByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = svc.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrUserNotFound)
	_, err = svc.GetUserByUsername(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	register(t, svc, "ana", "a@x.com", "pw")
	register(t, svc, "luis", "l@x.com", "pw")

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAssignBadge(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.AssignBadge(ctx, user.ID, "b1", first))
	require.NoError(t, svc.AssignBadge(ctx, user.ID, "b2", second))

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Badges, 2)
	last := got.Badges[len(got.Badges)-1]
	assert.Equal(t, "b2", last.BadgeID)
	assert.True(t, second.Equal(last.DateObtained))
}

func TestAssignBadgeDefaultsDate(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	require.NoError(t, svc.AssignBadge(ctx, user.ID, "b1", time.Time{}))

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Badges, 1)
	assert.WithinDuration(t, time.Now(), got.Badges[0].DateObtained, time.Minute)
}

func TestAssignBadgeMissingUser(t *testing.T) {
	svc, _, _ := setupService(t, 0)

	err := svc.AssignBadge(context.Background(), "missing", "b1", time.Now())
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestUpdateProgress(t *testing.T) {
	svc, _, _ := setupService(t, 8)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	progress, err := svc.UpdateProgress(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Progress{CompletedActivities: 1, Percentage: 13}, *progress)

	progress, err = svc.UpdateProgress(ctx, user.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, models.Progress{CompletedActivities: 4, Percentage: 50}, *progress)

	progress, err = svc.UpdateProgress(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, progress.CompletedActivities)

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, progress, got.Progress)
}

func TestUpdateProgressUsesCurrentActivityCount(t *testing.T) {
	svc, _, db := setupService(t, 2)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	progress, err := svc.UpdateProgress(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, progress.Percentage)

	testutil.SeedActivities(t, db, 2)
	progress, err = svc.UpdateProgress(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, progress.Percentage)
}

func TestUpdateProgressWithoutActivities(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	progress, err := svc.UpdateProgress(ctx, user.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, models.Progress{CompletedActivities: 5, Percentage: 0}, *progress)
}

func TestUpdateProgressInitialisesUnsetProgress(t *testing.T) {
	svc, users, _ := setupService(t, 4)
	ctx := context.Background()

	// Users created outside registration may have no progress at all.
	user := &models.User{Username: "legacy", Email: "legacy@x.com", Password: "x", Role: models.RoleStudent}
	require.NoError(t, users.Create(ctx, user))
	require.Nil(t, user.Progress)

	progress, err := svc.UpdateProgress(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Progress{CompletedActivities: 1, Percentage: 25}, *progress)
}

func TestUpdateProgressMissingUser(t *testing.T) {
	svc, _, _ := setupService(t, 1)

	_, err := svc.UpdateProgress(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestPatchUser(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	updated, err := svc.PatchUser(ctx, user.ID, map[string]interface{}{"username": "ana2"})
	require.NoError(t, err)
	assert.Equal(t, "ana2", updated.Username)
	assert.Equal(t, "a@x.com", updated.Email)
	assert.Equal(t, models.RoleStudent, updated.Role)

	// Password is untouched, so login still works with the new record.
	_, err = svc.Login(ctx, "a@x.com", "pw")
	assert.NoError(t, err)
}

func TestPatchUserRejectsSensitiveFields(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	for _, field := range []string{"rol", "password", "progreso", "insignias", "_id", "whatever"} {
		_, err := svc.PatchUser(ctx, user.ID, map[string]interface{}{field: "x"})
		assert.ErrorIs(t, err, services.ErrFieldNotAllowed, field)
	}

	_, err := svc.PatchUser(ctx, user.ID, map[string]interface{}{"username": 42})
	assert.ErrorIs(t, err, services.ErrInvalidField)

	got, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, got.Role)
	assert.Equal(t, "ana", got.Username)
}

func TestPatchUserRejectsMalformedEmail(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	_, err := svc.PatchUser(ctx, user.ID, map[string]interface{}{"email": "not-an-email"})
	assert.ErrorIs(t, err, services.ErrInvalidField)

	updated, err := svc.PatchUser(ctx, user.ID, map[string]interface{}{"email": "ana@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", updated.Email)
}

func TestPatchUserEmailTaken(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	register(t, svc, "ana", "a@x.com", "pw")
	luis := register(t, svc, "luis", "l@x.com", "pw")

	_, err := svc.PatchUser(ctx, luis.ID, map[string]interface{}{"email": "a@x.com"})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
}

func TestPatchUserMissing(t *testing.T) {
	svc, _, _ := setupService(t, 0)

	_, err := svc.PatchUser(context.Background(), "missing", map[string]interface{}{"username": "x"})
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	svc, _, _ := setupService(t, 0)
	ctx := context.Background()
	user := register(t, svc, "ana", "a@x.com", "pw")

	require.NoError(t, svc.DeleteUser(ctx, user.ID))

	_, err := svc.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, services.ErrUserNotFound)

	assert.ErrorIs(t, svc.DeleteUser(ctx, user.ID), services.ErrUserNotFound)
}

func TestUnexpectedStoreErrorsAreWrapped(t *testing.T) {
	svc := services.NewAccountService(&brokenStore{}, nil, testutil.TestJWTSecret)

	_, err := svc.GetUserByID(context.Background(), "1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, services.ErrUserNotFound))
	assert.ErrorIs(t, err, errStoreDown)
}

var errStoreDown = errors.New("store down")

// racingStore reports no existing email but rejects the insert.
type racingStore struct{ brokenStore }

func (racingStore) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func (racingStore) Create(context.Context, *models.User) error {
	return store.ErrDuplicateKey
}

type brokenStore struct{}

func (brokenStore) Create(context.Context, *models.User) error { return errStoreDown }
func (brokenStore) FindByID(context.Context, string) (*models.User, error) {
	return nil, errStoreDown
}
func (brokenStore) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, errStoreDown
}
func (brokenStore) FindByUsername(context.Context, string) (*models.User, error) {
	return nil, errStoreDown
}
func (brokenStore) FindAll(context.Context) ([]models.User, error) { return nil, errStoreDown }
func (brokenStore) UpdatePartial(context.Context, string, models.UserUpdate) (*models.User, error) {
	return nil, errStoreDown
}
func (brokenStore) Delete(context.Context, string) (*models.User, error) { return nil, errStoreDown }
func (brokenStore) PushBadge(context.Context, string, models.Badge) error  { return errStoreDown }
