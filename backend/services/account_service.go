// Package services implements the account operations behind the usuarios
// routes: login, registration, profile reads and edits, badges and progress.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"usuarios/backend/models"
	"usuarios/backend/store"
	"usuarios/backend/utils"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrFieldNotAllowed    = errors.New("field not allowed")
	ErrInvalidField       = errors.New("invalid field value")
	ErrPasswordTooLong    = errors.New("password too long")
)

// bcrypt only hashes the first 72 bytes and rejects longer input.
const maxPasswordBytes = 72

// patchableFields lists the keys PatchUser accepts. Role, password,
// progress and badges have their own operations.
var patchableFields = map[string]bool{
	"username": true,
	"email":    true,
}

type AccountService struct {
	users      store.UserStore
	activities store.ActivityCounter
	jwtSecret  string
}

func NewAccountService(users store.UserStore, activities store.ActivityCounter, jwtSecret string) *AccountService {
	return &AccountService{users: users, activities: activities, jwtSecret: jwtSecret}
}

type Session struct {
	Token string
	User  *models.User
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.findBy(ctx, s.users.FindByEmail, email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateJWTToken(user, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func (s *AccountService) Register(ctx context.Context, username, email, password string) (*Session, error) {
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		Role:     models.RoleStudent,
		Progress: &models.Progress{},
		Badges:   []models.Badge{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The pre-check above can race with a concurrent registration.
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := utils.GenerateJWTToken(user, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func (s *AccountService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AccountService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findBy(ctx, s.users.FindByID, id)
}

func (s *AccountService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findBy(ctx, s.users.FindByUsername, username)
}

// AssignBadge appends a badge to the user. A zero obtained date means now.
func (s *AccountService) AssignBadge(ctx context.Context, id, badgeID string, obtained time.Time) error {
	if obtained.IsZero() {
		obtained = time.Now().UTC()
	}
	err := s.users.PushBadge(ctx, id, models.Badge{BadgeID: badgeID, DateObtained: obtained})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("assign badge: %w", err)
	}
	return nil
}

// UpdateProgress adds increment completed activities and recomputes the
// percentage against the number of activities that exist right now.
func (s *AccountService) UpdateProgress(ctx context.Context, id string, increment int) (*models.Progress, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	progress := models.Progress{}
	if user.Progress != nil {
		progress = *user.Progress
	}

	total, err := s.activities.CountActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("count activities: %w", err)
	}
	progress.Advance(increment, total)

	updated, err := s.users.UpdatePartial(ctx, id, models.UserUpdate{Progress: &progress})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("save progress: %w", err)
	}
	return updated.Progress, nil
}

// PatchUser merges the supplied fields into the user. Only keys in
// patchableFields with string values are accepted.
func (s *AccountService) PatchUser(ctx context.Context, id string, fields map[string]interface{}) (*models.User, error) {
	update, err := buildUpdate(fields)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdatePartial(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, store.ErrDuplicateKey):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *AccountService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *AccountService) findBy(ctx context.Context, find func(context.Context, string) (*models.User, error), key string) (*models.User, error) {
	user, err := find(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func buildUpdate(fields map[string]interface{}) (models.UserUpdate, error) {
	var update models.UserUpdate

	var rejected []string
	for key := range fields {
		if !patchableFields[key] {
			rejected = append(rejected, key)
		}
	}
	if len(rejected) > 0 {
		sort.Strings(rejected)
		return update, fmt.Errorf("%w: %s", ErrFieldNotAllowed, strings.Join(rejected, ", "))
	}

	for key, raw := range fields {
		value, ok := raw.(string)
		if !ok || strings.TrimSpace(value) == "" {
			return update, fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidField, key)
		}
		if key == "email" && !utils.IsEmail(value) {
			return update, fmt.Errorf("%w: email must be a valid address", ErrInvalidField)
		}
		switch key {
		case "username":
			update.Username = &value
		case "email":
			update.Email = &value
		}
	}
	return update, nil
}
