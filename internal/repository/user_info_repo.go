package repository

import (
	"context"
	"errors"

	"chitpay/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserInfoNotFound = errors.New("客户信息不存在")

type UserInfoRepository struct {
	db *gorm.DB
}

func NewUserInfoRepository(db *gorm.DB) *UserInfoRepository {
	return &UserInfoRepository{db: db}
}

// Upsert 按手机号写入或覆盖客户意向
// 手机号已存在时覆盖姓名、地址、金额、周期，保留最初的创建人。
func (r *UserInfoRepository) Upsert(ctx context.Context, info *model.UserInfo) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "phone"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "location", "amount", "frequency", "updated_at",
			}),
		}).
		Create(info).Error
}

func (r *UserInfoRepository) GetByPhone(ctx context.Context, phone string) (*model.UserInfo, error) {
	var info model.UserInfo
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&info).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserInfoNotFound
		}
		return nil, err
	}
	return &info, nil
}
