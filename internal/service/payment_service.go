package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chitpay/internal/config"
	"chitpay/internal/infrastructure/cache"
	"chitpay/internal/infrastructure/lock"
	"chitpay/internal/model"
	"chitpay/internal/repository"
	"chitpay/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var (
	// ErrStoreUnavailable 主库和快照都读不到
	ErrStoreUnavailable = errors.New("数据存储暂不可用")
	// ErrForbidden 调用者对该记录没有操作权限
	ErrForbidden = errors.New("无权限操作该记录")
)

// paymentStore 缴款记录的持久化契约
// MySQL 仓储是唯一的写实现；读路径在主库失败时降级到快照，
// 两边执行同一个 PaymentFilter，调用方不感知数据来自哪边。
type paymentStore interface {
	Create(ctx context.Context, payment *model.Payment) error
	ExistsByInvoiceNo(ctx context.Context, invoiceNo string) (bool, error)
	FindMany(ctx context.Context, filter *model.PaymentFilter) ([]*model.Payment, error)
	FindByID(ctx context.Context, id int64) (*model.Payment, error)
	FindByPhone(ctx context.Context, phone string) ([]*model.Payment, error)
	DeleteByID(ctx context.Context, id int64) (int64, error)
	Count(ctx context.Context, filter *model.PaymentFilter) (int64, error)
	SumAmount(ctx context.Context) (float64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// snapshotStore 只读镜像，整存整取
type snapshotStore interface {
	Replace(ctx context.Context, payments []*model.Payment) error
	Load(ctx context.Context) ([]*model.Payment, error)
}

// EventPublisher 缴款事件广播接口
// 显式注入而不是全局单例；发送是 fire-and-forget 的，
// 失败只记日志，绝不影响发起请求的结果。
type EventPublisher interface {
	PublishPaymentCreated(ctx context.Context, payment *model.Payment) error
	PublishPaymentDeleted(ctx context.Context, id int64) error
}

type PaymentService struct {
	store     paymentStore
	snapshot  snapshotStore
	publisher EventPublisher
	rdb       *redis.Client
	cfg       *config.Config
}

func NewPaymentService(db *gorm.DB, rdb *redis.Client, publisher EventPublisher, cfg *config.Config) *PaymentService {
	return &PaymentService{
		store:     repository.NewPaymentRepository(db),
		snapshot:  cache.NewPaymentSnapshot(rdb),
		publisher: publisher,
		rdb:       rdb,
		cfg:       cfg,
	}
}

// CreatePaymentRequest 录入缴款请求
type CreatePaymentRequest struct {
	InvoiceNo string
	Name      string
	Phone     string
	Location  string
	Amount    float64
	Frequency string
	Date      time.Time
	Status    string
	UserID    int64
}

// Create 录入一条缴款记录
// 发票号冲突返回 repository.ErrDuplicateInvoice。
// 同一发票号的并发写入用 redis 锁收窄查重窗口（拿不到 Redis 时跳过，
// 唯一索引兜底），成功后异步广播事件并触发快照刷新。
func (s *PaymentService) Create(ctx context.Context, req *CreatePaymentRequest) (*model.Payment, error) {
	if !model.IsValidFrequency(req.Frequency) {
		return nil, fmt.Errorf("缴款周期不合法: %q", req.Frequency)
	}
	if req.Amount <= 0 {
		return nil, errors.New("金额必须大于 0")
	}

	invoiceNo := req.InvoiceNo
	if invoiceNo == "" {
		invoiceNo = idgen.GenerateInvoiceNo()
	}

	status := req.Status
	if status == "" {
		status = model.StatusPaid
	}

	if s.rdb != nil {
		invoiceLock := lock.NewInvoiceLock(s.rdb, invoiceNo)
		acquired, err := invoiceLock.TryLock(ctx)
		if err != nil {
			log.Printf("[PaymentService] 获取发票锁失败，跳过加锁: %v", err)
		} else if !acquired {
			return nil, repository.ErrDuplicateInvoice
		} else {
			defer invoiceLock.Unlock(ctx)
		}
	}

	exists, err := s.store.ExistsByInvoiceNo(ctx, invoiceNo)
	if err != nil {
		return nil, fmt.Errorf("查询发票号失败: %w", err)
	}
	if exists {
		return nil, repository.ErrDuplicateInvoice
	}

	userID := req.UserID
	payment := &model.Payment{
		InvoiceNo: invoiceNo,
		Name:      req.Name,
		Phone:     req.Phone,
		Location:  req.Location,
		Amount:    req.Amount,
		Frequency: req.Frequency,
		Date:      req.Date,
		Status:    status,
		UserID:    &userID,
	}

	if err := s.store.Create(ctx, payment); err != nil {
		return nil, err
	}

	go s.broadcastCreated(payment)
	go s.refreshSnapshotAsync()

	return payment, nil
}

// List 按过滤条件查询缴款记录
// 先查主库；主库失败时降级到快照，用同一套过滤语义在内存里筛，
// 两条路径都保证创建时间倒序。主库成功后异步整体刷新快照。
func (s *PaymentService) List(ctx context.Context, filter *model.PaymentFilter) ([]*model.Payment, error) {
	payments, err := s.store.FindMany(ctx, filter)
	if err == nil {
		go s.refreshSnapshotAsync()
		return payments, nil
	}

	log.Printf("[PaymentService] 主库查询失败，降级读快照: %v", err)

	cached, cacheErr := s.snapshot.Load(ctx)
	if cacheErr != nil {
		log.Printf("[PaymentService] 快照也不可用: %v", cacheErr)
		return nil, ErrStoreUnavailable
	}

	return filter.FilterPayments(cached), nil
}

// Get 按 ID 取单条记录
func (s *PaymentService) Get(ctx context.Context, id int64) (*model.Payment, error) {
	return s.store.FindByID(ctx, id)
}

// HistoryByPhone 某手机号的全部缴款历史
func (s *PaymentService) HistoryByPhone(ctx context.Context, phone string) ([]*model.Payment, error) {
	return s.store.FindByPhone(ctx, phone)
}

// Delete 删除缴款记录
// 管理员可以删任何记录，普通用户只能删自己创建的。
func (s *PaymentService) Delete(ctx context.Context, caller *model.User, id int64) error {
	payment, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !model.CanModifyPayment(caller.Role, payment.UserID, caller.ID) {
		return ErrForbidden
	}

	if _, err := s.store.DeleteByID(ctx, id); err != nil {
		return err
	}

	go s.broadcastDeleted(id)
	go s.refreshSnapshotAsync()

	return nil
}

// Stats 看板统计
type Stats struct {
	TotalPayments   int64   `json:"totalPayments"`
	TotalAmount     float64 `json:"totalAmount"`
	MonthlyPayments int64   `json:"monthlyPayments"`
}

// GetStats 聚合统计：总笔数、总金额、本月（按缴款日期）笔数
func (s *PaymentService) GetStats(ctx context.Context) (*Stats, error) {
	total, err := s.store.Count(ctx, nil)
	if err != nil {
		return nil, err
	}

	totalAmount, err := s.store.SumAmount(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthly, err := s.store.CountSince(ctx, firstOfMonth)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalPayments:   total,
		TotalAmount:     totalAmount,
		MonthlyPayments: monthly,
	}, nil
}

// RefreshSnapshot 全量拉主库并整体覆盖快照
// 后台定时任务和每次成功的主库读写之后都会走到这里。
func (s *PaymentService) RefreshSnapshot(ctx context.Context) error {
	payments, err := s.store.FindMany(ctx, nil)
	if err != nil {
		return fmt.Errorf("拉取全量缴款记录失败: %w", err)
	}
	if err := s.snapshot.Replace(ctx, payments); err != nil {
		return fmt.Errorf("覆盖快照失败: %w", err)
	}
	return nil
}

func (s *PaymentService) refreshSnapshotAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.RefreshSnapshot(ctx); err != nil {
		log.Printf("[PaymentService] 异步刷新快照失败: %v", err)
	}
}

func (s *PaymentService) broadcastCreated(payment *model.Payment) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.publisher.PublishPaymentCreated(ctx, payment); err != nil {
		log.Printf("[PaymentService] 广播 paymentCreated 失败: %v", err)
	}
}

func (s *PaymentService) broadcastDeleted(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.publisher.PublishPaymentDeleted(ctx, id); err != nil {
		log.Printf("[PaymentService] 广播 paymentDeleted 失败: %v", err)
	}
}
