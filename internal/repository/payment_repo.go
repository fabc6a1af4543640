package repository

import (
	"context"
	"errors"
	"time"

	"chitpay/internal/model"

	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound  = errors.New("缴款记录不存在")
	ErrDuplicateInvoice = errors.New("发票号已存在")
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create 写入一条缴款记录
// 发票号冲突返回 ErrDuplicateInvoice，唯一索引是最终防线。
func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	err := r.db.WithContext(ctx).Create(payment).Error
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateInvoice
		}
		return err
	}
	return nil
}

// ExistsByInvoiceNo 发票号是否已被占用
func (r *PaymentRepository) ExistsByInvoiceNo(ctx context.Context, invoiceNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("invoice_no = ?", invoiceNo).
		Count(&count).Error
	return count > 0, err
}

// FindMany 按过滤条件查询，创建时间倒序
func (r *PaymentRepository) FindMany(ctx context.Context, filter *model.PaymentFilter) ([]*model.Payment, error) {
	var payments []*model.Payment
	query := r.db.WithContext(ctx).Model(&model.Payment{})
	query = filter.Apply(query)
	err := query.Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) FindByID(ctx context.Context, id int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// FindByPhone 某个手机号的全部缴款历史，创建时间倒序
func (r *PaymentRepository) FindByPhone(ctx context.Context, phone string) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// DeleteByID 删除记录，返回删掉的行数（0 或 1）
func (r *PaymentRepository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Payment{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrPaymentNotFound
	}
	return result.RowsAffected, nil
}

// Count 满足条件的记录数，filter 为 nil 时统计全表
func (r *PaymentRepository) Count(ctx context.Context, filter *model.PaymentFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.Payment{})
	query = filter.Apply(query)
	err := query.Count(&count).Error
	return count, err
}

// SumAmount 全部记录的金额合计，空表返回 0 而不是错误
func (r *PaymentRepository) SumAmount(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// CountSince 缴款日期在 since（含）之后的记录数，月度统计用
func (r *PaymentRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("date >= ?", since).
		Count(&count).Error
	return count, err
}
