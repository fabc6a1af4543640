package handler

import (
	"errors"
	"strconv"
	"time"

	"chitpay/internal/config"
	"chitpay/internal/model"
	"chitpay/internal/repository"
	"chitpay/internal/service"
	"chitpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	authService     *service.AuthService
	paymentService  *service.PaymentService
	userInfoService *service.UserInfoService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, publisher service.EventPublisher, cfg *config.Config) *Handler {
	return &Handler{
		authService:     service.NewAuthService(db, cfg),
		paymentService:  service.NewPaymentService(db, rdb, publisher, cfg),
		userInfoService: service.NewUserInfoService(db),
	}
}

// ============================================================
// 认证相关接口
// ============================================================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// Register 注册账号
// POST /api/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, tokenStr, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		// 用户名占用和本地校验失败都按 400 处理
		response.ParamError(c, err.Error())
		return
	}

	response.Created(c, gin.H{
		"token": tokenStr,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录并签发令牌（包含引导账号通道）
// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	user, tokenStr, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, err.Error())
			return
		}
		response.ServerError(c)
		return
	}

	response.Success(c, gin.H{
		"token": tokenStr,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// UserCount 账号总数
// GET /api/auth/users/count
func (h *Handler) UserCount(c *gin.Context) {
	count, err := h.authService.CountUsers(c.Request.Context())
	if err != nil {
		response.ServerError(c)
		return
	}
	response.Success(c, gin.H{"count": count})
}

// ============================================================
// 缴款记录相关接口
// ============================================================

// ListPayments 按条件查询全部缴款记录（管理员）
// GET /api/payments?search=xxx&frequency=monthly&dateFrom=2024-01-01&dateTo=2024-12-31
func (h *Handler) ListPayments(c *gin.Context) {
	filter, err := buildFilter(c)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	payments, err := h.paymentService.List(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			response.StoreUnavailable(c)
			return
		}
		response.ServerError(c)
		return
	}

	response.Success(c, payments)
}

// MyPayments 查询当前账号自己的缴款记录
// GET /api/payments/my-payments
func (h *Handler) MyPayments(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Unauthorized(c, "未登录")
		return
	}

	filter := &model.PaymentFilter{UserID: &user.ID}

	payments, err := h.paymentService.List(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			response.StoreUnavailable(c)
			return
		}
		response.ServerError(c)
		return
	}

	response.Success(c, payments)
}

// CreatePaymentRequest 录入缴款请求
// invoiceNo 缺省时由服务端生成
type CreatePaymentRequest struct {
	InvoiceNo string  `json:"invoiceNo"`
	Name      string  `json:"name" binding:"required"`
	Phone     string  `json:"phone" binding:"required"`
	Location  string  `json:"location" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Frequency string  `json:"frequency" binding:"required,oneof=weekly monthly quarterly yearly"`
	Date      string  `json:"date" binding:"required"`
	Status    string  `json:"status"`
}

// CreatePayment 录入缴款记录
// POST /api/payments
func (h *Handler) CreatePayment(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Unauthorized(c, "未登录")
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		response.ParamError(c, "日期格式错误")
		return
	}

	payment, err := h.paymentService.Create(c.Request.Context(), &service.CreatePaymentRequest{
		InvoiceNo: req.InvoiceNo,
		Name:      req.Name,
		Phone:     req.Phone,
		Location:  req.Location,
		Amount:    req.Amount,
		Frequency: req.Frequency,
		Date:      date,
		Status:    req.Status,
		UserID:    user.ID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateInvoice) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c)
		return
	}

	response.Created(c, payment)
}

// DeletePayment 删除缴款记录（本人或管理员）
// DELETE /api/payments/:id
func (h *Handler) DeletePayment(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Unauthorized(c, "未登录")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id 参数错误")
		return
	}

	err = h.paymentService.Delete(c.Request.Context(), user, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, service.ErrForbidden):
			response.Forbidden(c, err.Error())
		default:
			response.ServerError(c)
		}
		return
	}

	response.Message(c, "缴款记录已删除")
}

// PaymentStats 看板统计（管理员）
// GET /api/payments/stats
func (h *Handler) PaymentStats(c *gin.Context) {
	stats, err := h.paymentService.GetStats(c.Request.Context())
	if err != nil {
		response.ServerError(c)
		return
	}
	response.Success(c, stats)
}

// ============================================================
// 客户意向相关接口
// ============================================================

// SaveUserInfoRequest 录入客户意向请求
type SaveUserInfoRequest struct {
	Name      string  `json:"name" binding:"required"`
	Phone     string  `json:"phone" binding:"required"`
	Location  string  `json:"location"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Frequency string  `json:"frequency" binding:"required,oneof=weekly monthly quarterly yearly"`
}

// SaveUserInfo 按手机号写入或覆盖客户意向
// POST /api/payments/user-info
func (h *Handler) SaveUserInfo(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Unauthorized(c, "未登录")
		return
	}

	var req SaveUserInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	info, err := h.userInfoService.Save(c.Request.Context(), &service.SaveUserInfoRequest{
		Name:      req.Name,
		Phone:     req.Phone,
		Location:  req.Location,
		Amount:    req.Amount,
		Frequency: req.Frequency,
		CreatedBy: user.ID,
	})
	if err != nil {
		response.ServerError(c)
		return
	}

	response.Success(c, info)
}

// SearchUser 按手机号查客户意向
// GET /api/payments/search-user?phone=xxx
func (h *Handler) SearchUser(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		response.ParamError(c, "phone 参数不能为空")
		return
	}

	info, err := h.userInfoService.GetByPhone(c.Request.Context(), phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserInfoNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c)
		return
	}

	response.Success(c, info)
}

// AdminSearchUser 按手机号查客户意向 + 全部缴款历史（管理员）
// GET /api/payments/admin-search-user?phone=xxx
func (h *Handler) AdminSearchUser(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		response.ParamError(c, "phone 参数不能为空")
		return
	}

	ctx := c.Request.Context()

	info, err := h.userInfoService.GetByPhone(ctx, phone)
	if err != nil && !errors.Is(err, repository.ErrUserInfoNotFound) {
		response.ServerError(c)
		return
	}

	history, err := h.paymentService.HistoryByPhone(ctx, phone)
	if err != nil {
		response.ServerError(c)
		return
	}

	response.Success(c, gin.H{
		"userInfo":       info,
		"paymentHistory": history,
	})
}

// ============================================================
// 工具函数
// ============================================================

// buildFilter 从查询参数组装过滤条件
func buildFilter(c *gin.Context) (*model.PaymentFilter, error) {
	filter := &model.PaymentFilter{
		Search:    c.Query("search"),
		Frequency: c.Query("frequency"),
	}

	if v := c.Query("dateFrom"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return nil, errors.New("dateFrom 格式错误")
		}
		filter.DateFrom = &t
	}

	if v := c.Query("dateTo"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return nil, errors.New("dateTo 格式错误")
		}
		filter.DateTo = &t
	}

	return filter, nil
}

// parseDate 兼容纯日期和前端 toISOString 两种格式
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
