package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"chitpay/internal/model"
	"chitpay/internal/repository"
)

// ==================== 测试替身 ====================

// stubPaymentStore 内存版主库，failReads 置位后模拟主库不可用
type stubPaymentStore struct {
	mu        sync.Mutex
	payments  []*model.Payment
	nextID    int64
	failReads bool
	failAll   bool
}

var errStubDown = errors.New("主库连接失败")

func (s *stubPaymentStore) Create(ctx context.Context, payment *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStubDown
	}
	for _, p := range s.payments {
		if p.InvoiceNo == payment.InvoiceNo {
			return repository.ErrDuplicateInvoice
		}
	}
	s.nextID++
	payment.ID = s.nextID
	payment.CreatedAt = time.Now()
	s.payments = append(s.payments, payment)
	return nil
}

func (s *stubPaymentStore) ExistsByInvoiceNo(ctx context.Context, invoiceNo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads || s.failAll {
		return false, errStubDown
	}
	for _, p := range s.payments {
		if p.InvoiceNo == invoiceNo {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubPaymentStore) FindMany(ctx context.Context, filter *model.PaymentFilter) ([]*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads || s.failAll {
		return nil, errStubDown
	}
	return filter.FilterPayments(s.payments), nil
}

func (s *stubPaymentStore) FindByID(ctx context.Context, id int64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads || s.failAll {
		return nil, errStubDown
	}
	for _, p := range s.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (s *stubPaymentStore) FindByPhone(ctx context.Context, phone string) ([]*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Payment
	for _, p := range s.payments {
		if p.Phone == phone {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPaymentStore) DeleteByID(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.payments {
		if p.ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			return 1, nil
		}
	}
	return 0, repository.ErrPaymentNotFound
}

func (s *stubPaymentStore) Count(ctx context.Context, filter *model.PaymentFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(filter.FilterPayments(s.payments))), nil
}

func (s *stubPaymentStore) SumAmount(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, p := range s.payments {
		total += p.Amount
	}
	return total, nil
}

func (s *stubPaymentStore) CountSince(ctx context.Context, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, p := range s.payments {
		if !p.Date.Before(since) {
			count++
		}
	}
	return count, nil
}

// stubSnapshot 内存版快照
type stubSnapshot struct {
	mu       sync.Mutex
	payments []*model.Payment
	loaded   bool
	failAll  bool
}

func (s *stubSnapshot) Replace(ctx context.Context, payments []*model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStubDown
	}
	s.payments = payments
	s.loaded = true
	return nil
}

func (s *stubSnapshot) Load(ctx context.Context) ([]*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll || !s.loaded {
		return nil, errStubDown
	}
	return s.payments, nil
}

// chanPublisher 把事件推进 channel，便于等待异步广播
type chanPublisher struct {
	created chan *model.Payment
	deleted chan int64
}

func newChanPublisher() *chanPublisher {
	return &chanPublisher{
		created: make(chan *model.Payment, 8),
		deleted: make(chan int64, 8),
	}
}

func (p *chanPublisher) PublishPaymentCreated(ctx context.Context, payment *model.Payment) error {
	p.created <- payment
	return nil
}

func (p *chanPublisher) PublishPaymentDeleted(ctx context.Context, id int64) error {
	p.deleted <- id
	return nil
}

func newTestPaymentService(store *stubPaymentStore, snap *stubSnapshot, pub EventPublisher) *PaymentService {
	if pub == nil {
		pub = newChanPublisher()
	}
	return &PaymentService{
		store:     store,
		snapshot:  snap,
		publisher: pub,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func seedStore() *stubPaymentStore {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &stubPaymentStore{
		nextID: 3,
		payments: []*model.Payment{
			{ID: 1, InvoiceNo: "INV001", Name: "John Doe", Phone: "9876543210", Amount: 5000,
				Frequency: model.FrequencyMonthly, Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Status: model.StatusPaid, UserID: int64Ptr(1), CreatedAt: base},
			{ID: 2, InvoiceNo: "INV002", Name: "Jane Smith", Phone: "9000000001", Amount: 3000,
				Frequency: model.FrequencyWeekly, Date: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
				Status: model.StatusPaid, UserID: int64Ptr(2), CreatedAt: base.Add(time.Hour)},
			{ID: 3, InvoiceNo: "INV003", Name: "John Roe", Phone: "9000000002", Amount: 2000,
				Frequency: model.FrequencyMonthly, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				Status: model.StatusPaid, UserID: int64Ptr(1), CreatedAt: base.Add(2 * time.Hour)},
		},
	}
}

// ==================== 查询与降级 ====================

func TestList_RemoteOK(t *testing.T) {
	svc := newTestPaymentService(seedStore(), &stubSnapshot{}, nil)

	got, err := svc.List(context.Background(), &model.PaymentFilter{Search: "John"})
	if err != nil {
		t.Fatalf("List 返回错误: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条，得到 %d 条", len(got))
	}
	if got[0].ID != 3 || got[1].ID != 1 {
		t.Errorf("应按创建时间倒序: got [%d, %d]", got[0].ID, got[1].ID)
	}
}

// 主库不可用时降级读快照，过滤语义与主库一致，错误不外传
func TestList_FallbackToSnapshot(t *testing.T) {
	store := seedStore()
	snap := &stubSnapshot{}
	if err := snap.Replace(context.Background(), store.payments); err != nil {
		t.Fatal(err)
	}
	store.failReads = true

	svc := newTestPaymentService(store, snap, nil)

	got, err := svc.List(context.Background(), &model.PaymentFilter{Frequency: model.FrequencyMonthly})
	if err != nil {
		t.Fatalf("降级读不应返回错误: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望快照里筛出 2 条，得到 %d 条", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Error("降级读结果也必须按创建时间倒序")
		}
	}
}

func TestList_StoreUnavailable(t *testing.T) {
	store := seedStore()
	store.failReads = true

	svc := newTestPaymentService(store, &stubSnapshot{}, nil)

	_, err := svc.List(context.Background(), &model.PaymentFilter{})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("主库和快照都失败时应返回 ErrStoreUnavailable，得到 %v", err)
	}
}

// 普通用户的结果集里绝不出现他人的记录
func TestList_UserScope(t *testing.T) {
	svc := newTestPaymentService(seedStore(), &stubSnapshot{}, nil)

	got, err := svc.List(context.Background(), &model.PaymentFilter{UserID: int64Ptr(1)})
	if err != nil {
		t.Fatalf("List 返回错误: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条，得到 %d 条", len(got))
	}
	for _, p := range got {
		if p.UserID == nil || *p.UserID != 1 {
			t.Errorf("结果集里混入了他人的记录: id=%d", p.ID)
		}
	}
}

// ==================== 录入 ====================

func TestCreate_DuplicateInvoice(t *testing.T) {
	svc := newTestPaymentService(seedStore(), &stubSnapshot{}, nil)

	req := newCreateReq("INV001")
	_, err := svc.Create(context.Background(), &req)
	if !errors.Is(err, repository.ErrDuplicateInvoice) {
		t.Fatalf("重复发票号应返回 ErrDuplicateInvoice，得到 %v", err)
	}
}

func newCreateReq(invoiceNo string) CreatePaymentRequest {
	return CreatePaymentRequest{
		InvoiceNo: invoiceNo,
		Name:      "Test Customer",
		Phone:     "9111111111",
		Location:  "Madurai",
		Amount:    1000,
		Frequency: model.FrequencyMonthly,
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		UserID:    1,
	}
}

func TestCreate_DefaultsAndBroadcast(t *testing.T) {
	pub := newChanPublisher()
	svc := newTestPaymentService(seedStore(), &stubSnapshot{}, pub)

	req := newCreateReq("")
	payment, err := svc.Create(context.Background(), &req)
	if err != nil {
		t.Fatalf("Create 返回错误: %v", err)
	}

	if payment.InvoiceNo == "" || !strings.HasPrefix(payment.InvoiceNo, "INV") {
		t.Errorf("缺省发票号应由服务端生成，得到 %q", payment.InvoiceNo)
	}
	if payment.Status != model.StatusPaid {
		t.Errorf("状态应默认为 %q，得到 %q", model.StatusPaid, payment.Status)
	}
	if payment.UserID == nil || *payment.UserID != 1 {
		t.Error("记录应归属发起人")
	}

	select {
	case got := <-pub.created:
		if got.InvoiceNo != payment.InvoiceNo {
			t.Errorf("广播的记录不对: %q", got.InvoiceNo)
		}
	case <-time.After(time.Second):
		t.Error("录入成功后应广播 paymentCreated")
	}
}

// ==================== 删除与权限 ====================

func TestDelete_Authorization(t *testing.T) {
	admin := &model.User{ID: 99, Role: model.RoleAdmin}
	owner := &model.User{ID: 1, Role: model.RoleUser}
	other := &model.User{ID: 2, Role: model.RoleUser}

	svc := newTestPaymentService(seedStore(), &stubSnapshot{}, nil)
	ctx := context.Background()

	if err := svc.Delete(ctx, other, 1); !errors.Is(err, ErrForbidden) {
		t.Errorf("普通用户删他人记录应返回 ErrForbidden，得到 %v", err)
	}
	if err := svc.Delete(ctx, owner, 1); err != nil {
		t.Errorf("本人删除自己的记录应成功: %v", err)
	}
	if err := svc.Delete(ctx, admin, 2); err != nil {
		t.Errorf("管理员删除任意记录应成功: %v", err)
	}
	if err := svc.Delete(ctx, admin, 404); !errors.Is(err, repository.ErrPaymentNotFound) {
		t.Errorf("删除不存在的记录应返回 ErrPaymentNotFound，得到 %v", err)
	}
}

// ==================== 统计 ====================

func TestGetStats(t *testing.T) {
	svc := newTestPaymentService(seedStore(), &stubSnapshot{}, nil)

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats 返回错误: %v", err)
	}
	if stats.TotalPayments != 3 {
		t.Errorf("TotalPayments = %d, want 3", stats.TotalPayments)
	}
	if stats.TotalAmount != 10000 {
		t.Errorf("TotalAmount = %f, want 10000", stats.TotalAmount)
	}
}

// 空表时合计金额是 0 而不是错误
func TestGetStats_Empty(t *testing.T) {
	svc := newTestPaymentService(&stubPaymentStore{}, &stubSnapshot{}, nil)

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats 返回错误: %v", err)
	}
	if stats.TotalPayments != 0 || stats.TotalAmount != 0 || stats.MonthlyPayments != 0 {
		t.Errorf("空表统计应全为 0: %+v", stats)
	}
}

// ==================== 快照刷新 ====================

func TestRefreshSnapshot(t *testing.T) {
	store := seedStore()
	snap := &stubSnapshot{}
	svc := newTestPaymentService(store, snap, nil)

	if err := svc.RefreshSnapshot(context.Background()); err != nil {
		t.Fatalf("RefreshSnapshot 返回错误: %v", err)
	}

	cached, err := snap.Load(context.Background())
	if err != nil {
		t.Fatalf("刷新后快照应可读: %v", err)
	}
	if len(cached) != 3 {
		t.Errorf("快照应是全量 3 条，得到 %d 条", len(cached))
	}
}
