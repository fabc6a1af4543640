package service

import (
	"context"

	"chitpay/internal/model"
	"chitpay/internal/repository"

	"gorm.io/gorm"
)

// userInfoStore 客户意向的存取契约
type userInfoStore interface {
	Upsert(ctx context.Context, info *model.UserInfo) error
	GetByPhone(ctx context.Context, phone string) (*model.UserInfo, error)
}

type UserInfoService struct {
	infoRepo userInfoStore
}

func NewUserInfoService(db *gorm.DB) *UserInfoService {
	return &UserInfoService{
		infoRepo: repository.NewUserInfoRepository(db),
	}
}

// SaveUserInfoRequest 收款员录入的客户意向
type SaveUserInfoRequest struct {
	Name      string
	Phone     string
	Location  string
	Amount    float64
	Frequency string
	CreatedBy int64
}

// Save 按手机号写入或覆盖客户意向，返回落库后的最新一行。
// 手机号不做任何归一化，不同写法的号码视为不同客户。
func (s *UserInfoService) Save(ctx context.Context, req *SaveUserInfoRequest) (*model.UserInfo, error) {
	createdBy := req.CreatedBy
	info := &model.UserInfo{
		Name:      req.Name,
		Phone:     req.Phone,
		Location:  req.Location,
		Amount:    req.Amount,
		Frequency: req.Frequency,
		CreatedBy: &createdBy,
	}

	if err := s.infoRepo.Upsert(ctx, info); err != nil {
		return nil, err
	}

	return s.infoRepo.GetByPhone(ctx, req.Phone)
}

// GetByPhone 按手机号查客户意向
func (s *UserInfoService) GetByPhone(ctx context.Context, phone string) (*model.UserInfo, error) {
	return s.infoRepo.GetByPhone(ctx, phone)
}
