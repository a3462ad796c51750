package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"usuarios/backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRecord struct {
	ID                  string `gorm:"primaryKey;size:36"`
	Username            string `gorm:"index;not null"`
	Email               string `gorm:"uniqueIndex;not null"`
	PasswordHash        string `gorm:"not null"`
	Role                string `gorm:"default:estudiante"`
	CompletedActivities *int
	Percentage          *int
	Badges              []badgeRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (userRecord) TableName() string { return "usuarios" }

func (r *userRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type badgeRecord struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       string `gorm:"index;size:36;not null"`
	BadgeID      string `gorm:"not null"`
	DateObtained time.Time
}

func (badgeRecord) TableName() string { return "insignias" }

func (r *userRecord) toModel() *models.User {
	user := &models.User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.PasswordHash,
		Role:      r.Role,
		Badges:    make([]models.Badge, 0, len(r.Badges)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.CompletedActivities != nil || r.Percentage != nil {
		user.Progress = &models.Progress{}
		if r.CompletedActivities != nil {
			user.Progress.CompletedActivities = *r.CompletedActivities
		}
		if r.Percentage != nil {
			user.Progress.Percentage = *r.Percentage
		}
	}
	for _, b := range r.Badges {
		user.Badges = append(user.Badges, models.Badge{BadgeID: b.BadgeID, DateObtained: b.DateObtained})
	}
	return user
}

func recordFromModel(user *models.User) *userRecord {
	rec := &userRecord{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.Password,
		Role:         user.Role,
	}
	if user.Progress != nil {
		completed, pct := user.Progress.CompletedActivities, user.Progress.Percentage
		rec.CompletedActivities = &completed
		rec.Percentage = &pct
	}
	for _, b := range user.Badges {
		rec.Badges = append(rec.Badges, badgeRecord{BadgeID: b.BadgeID, DateObtained: b.DateObtained})
	}
	return rec
}

// GormUserStore keeps users in SQL tables. The *gorm.DB must be opened with
// TranslateError enabled so unique violations surface as gorm.ErrDuplicatedKey.
type GormUserStore struct {
	DB *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{DB: db}
}

// Migrate creates the tables used by the gorm backend.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{}, &badgeRecord{}, &models.Activity{})
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	rec := recordFromModel(user)
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	*user = *rec.toModel()
	return nil
}

func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(s.DB.WithContext(ctx), "id = ?", id)
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(s.DB.WithContext(ctx), "email = ?", email)
}

func (s *GormUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(s.DB.WithContext(ctx), "username = ?", username)
}

func (s *GormUserStore) findOne(db *gorm.DB, query string, arg interface{}) (*models.User, error) {
	var rec userRecord
	err := db.Preload("Badges", orderBadges).Where(query, arg).Order("created_at").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return rec.toModel(), nil
}

func (s *GormUserStore) FindAll(ctx context.Context) ([]models.User, error) {
	var recs []userRecord
	if err := s.DB.WithContext(ctx).Preload("Badges", orderBadges).Order("created_at").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.User, 0, len(recs))
	for i := range recs {
		users = append(users, *recs[i].toModel())
	}
	return users, nil
}

func (s *GormUserStore) UpdatePartial(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	var updated *models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findOne(tx, "id = ?", id); err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if update.Username != nil {
			fields["username"] = *update.Username
		}
		if update.Email != nil {
			fields["email"] = *update.Email
		}
		if update.Password != nil {
			fields["password_hash"] = *update.Password
		}
		if update.Role != nil {
			fields["role"] = *update.Role
		}
		if update.Progress != nil {
			fields["completed_activities"] = update.Progress.CompletedActivities
			fields["percentage"] = update.Progress.Percentage
		}

		if len(fields) > 0 {
			fields["updated_at"] = time.Now()
			if err := tx.Model(&userRecord{}).Where("id = ?", id).Updates(fields).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrDuplicateKey
				}
				return fmt.Errorf("update user: %w", err)
			}
		}

		var err error
		updated, err = s.findOne(tx, "id = ?", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *GormUserStore) Delete(ctx context.Context, id string) (*models.User, error) {
	var deleted *models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = s.findOne(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&badgeRecord{}).Error; err != nil {
			return fmt.Errorf("delete badges: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&userRecord{}).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *GormUserStore) PushBadge(ctx context.Context, id string, badge models.Badge) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		rec := badgeRecord{UserID: id, BadgeID: badge.BadgeID, DateObtained: badge.DateObtained}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("push badge: %w", err)
		}
		return tx.Model(&userRecord{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
	})
}

func orderBadges(db *gorm.DB) *gorm.DB {
	return db.Order("insignias.id")
}

type GormActivityCounter struct {
	DB *gorm.DB
}

func NewGormActivityCounter(db *gorm.DB) *GormActivityCounter {
	return &GormActivityCounter{DB: db}
}

func (c *GormActivityCounter) CountActivities(ctx context.Context) (int64, error) {
	var total int64
	if err := c.DB.WithContext(ctx).Model(&models.Activity{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return total, nil
}
