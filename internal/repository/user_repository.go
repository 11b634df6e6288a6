package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"casecraft_echo/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert inserts the user or refreshes the profile of the existing row with
// the same firebase_uid. Empty name and image values never overwrite stored ones.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "firebase_uid"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "email"}, Value: clause.Expr{SQL: "excluded.email"}},
			{Column: clause.Column{Name: "name"}, Value: clause.Expr{SQL: "COALESCE(NULLIF(excluded.name, ''), users.name)"}},
			{Column: clause.Column{Name: "image_url"}, Value: clause.Expr{SQL: "COALESCE(NULLIF(excluded.image_url, ''), users.image_url)"}},
			{Column: clause.Column{Name: "updated_at"}, Value: clause.Expr{SQL: "excluded.updated_at"}},
			{Column: clause.Column{Name: "deleted_at"}, Value: nil},
		},
	}).Create(user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return r.GetByFirebaseUID(ctx, user.FirebaseUID)
}

func (r *UserRepository) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}
