package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-evidence-api/internal/models"
)

// UserMetaRepository reads and writes opaque per-user metadata.
type UserMetaRepository interface {
	Get(ctx context.Context, userID uint, key string) (string, bool, error)
	Set(ctx context.Context, userID uint, key, value string) error
	ListByKeyPattern(ctx context.Context, likePattern string) ([]models.UserMeta, error)
	ListForUser(ctx context.Context, userID uint, likePattern string) ([]models.UserMeta, error)
}

type userMetaRepository struct {
	db *gorm.DB
}

// NewUserMetaRepository constructs the metadata repository.
func NewUserMetaRepository(db *gorm.DB) UserMetaRepository {
	return &userMetaRepository{db: db}
}

func (r *userMetaRepository) Get(ctx context.Context, userID uint, key string) (string, bool, error) {
	var meta models.UserMeta
	err := r.db.WithContext(ctx).Where("user_id = ? AND meta_key = ?", userID, key).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return meta.MetaValue, true, nil
}

// Set upserts the value; concurrent writers race with last-write-wins.
func (r *userMetaRepository) Set(ctx context.Context, userID uint, key, value string) error {
	meta := models.UserMeta{
		UserID:    userID,
		MetaKey:   key,
		MetaValue: value,
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "meta_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"meta_value", "updated_at"}),
	}).Create(&meta).Error
}

func (r *userMetaRepository) ListByKeyPattern(ctx context.Context, likePattern string) ([]models.UserMeta, error) {
	var metas []models.UserMeta
	err := r.db.WithContext(ctx).
		Where("meta_key LIKE ?", likePattern).
		Order("user_id ASC").
		Order("meta_key ASC").
		Find(&metas).Error
	if err != nil {
		return nil, err
	}
	return metas, nil
}

func (r *userMetaRepository) ListForUser(ctx context.Context, userID uint, likePattern string) ([]models.UserMeta, error) {
	var metas []models.UserMeta
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND meta_key LIKE ?", userID, likePattern).
		Order("meta_key ASC").
		Find(&metas).Error
	if err != nil {
		return nil, err
	}
	return metas, nil
}
