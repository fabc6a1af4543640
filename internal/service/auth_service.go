package service

import (
	"context"
	"errors"
	"strings"

	"chitpay/internal/config"
	"chitpay/internal/model"
	"chitpay/internal/repository"
	"chitpay/pkg/token"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 登录失败统一用这一个错误，不区分“用户不存在”和“密码错误”，
// 避免被用来枚举用户名。
var ErrInvalidCredentials = errors.New("用户名或密码错误")

// bcrypt 代价沿用线上系统的取值
const bcryptCost = 12

// userStore 认证服务依赖的账号存取能力
type userStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetOrCreate(ctx context.Context, user *model.User) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

// bootstrapAccount 内置引导账号
// 为保证系统首次部署就能登录，这两个账号首次登录时自动建档，
// 并且完全绕过密码哈希校验。这是兼容历史行为的刻意保留，
// 属于已知的安全弱点，可通过配置整体关闭。
type bootstrapAccount struct {
	password string
	role     string
}

var bootstrapAccounts = map[string]bootstrapAccount{
	"admin":            {password: "admin123", role: model.RoleAdmin},
	"collection agent": {password: "collection123", role: model.RoleUser},
}

type AuthService struct {
	userRepo userStore
	cfg      *config.Config
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: repository.NewUserRepository(db),
		cfg:      cfg,
	}
}

// Register 注册新账号并签发令牌
func (s *AuthService) Register(ctx context.Context, username, password, role string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, "", errors.New("用户名不能为空")
	}
	if len(password) < 6 {
		return nil, "", errors.New("密码长度至少 6 位")
	}
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleAdmin && role != model.RoleUser {
		return nil, "", errors.New("角色不合法")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Username: username,
		Password: string(hashed),
		Role:     role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	tokenStr, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, tokenStr, nil
}

// Login 校验凭证并签发令牌
// 先走引导账号通道，未命中再走常规的查库 + bcrypt 比对。
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	username = strings.TrimSpace(username)

	if s.cfg.Auth.BootstrapEnabled {
		if user, ok, err := s.bootstrapLogin(ctx, username, password); err != nil {
			return nil, "", err
		} else if ok {
			tokenStr, err := s.issueToken(user)
			if err != nil {
				return nil, "", err
			}
			return user, tokenStr, nil
		}
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	tokenStr, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, tokenStr, nil
}

// bootstrapLogin 引导账号登录通道
// 用户名和明文密码都精确匹配才命中；账号按用户名幂等建档，
// 重复登录不会产生第二行记录。
func (s *AuthService) bootstrapLogin(ctx context.Context, username, password string) (*model.User, bool, error) {
	acct, ok := bootstrapAccounts[username]
	if !ok || acct.password != password {
		return nil, false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(acct.password), bcryptCost)
	if err != nil {
		return nil, false, err
	}

	user, err := s.userRepo.GetOrCreate(ctx, &model.User{
		Username: username,
		Password: string(hashed),
		Role:     acct.role,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// GetUser 按 ID 取账号
func (s *AuthService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// CountUsers 账号总数
func (s *AuthService) CountUsers(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

func (s *AuthService) issueToken(user *model.User) (string, error) {
	return token.Generate(s.cfg.Auth.JWTSecret, user.ID, s.cfg.Auth.TokenTTL())
}
