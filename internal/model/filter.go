package model

import (
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// FrequencyAll 前端“全部周期”筛选的哨兵值，等价于不过滤
const FrequencyAll = "all"

// PaymentFilter 缴款记录查询条件
// 所有字段都是可选的，给定的条件之间取 AND；Search 自身在
// name / phone / invoice_no 三个字段上取 OR（不区分大小写的子串匹配）。
// 日期按自然日闭区间比较，不看时分秒。
//
// 同一个结构同时服务两条持久化路径：
//   - Apply 把条件翻译成 SQL（MySQL 主库）
//   - Matches 在内存里做同义判定（Redis 快照降级读）
//
// 两条路径的过滤语义必须一致，调用方不感知数据来自哪边。
type PaymentFilter struct {
	Search    string
	Frequency string
	DateFrom  *time.Time
	DateTo    *time.Time
	UserID    *int64 // 可见范围：普通用户只能看自己的记录，管理员为 nil
}

// Apply 把过滤条件组装到 gorm 查询上
func (f *PaymentFilter) Apply(db *gorm.DB) *gorm.DB {
	if f == nil {
		return db
	}

	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		db = db.Where(
			"LOWER(name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(invoice_no) LIKE ?",
			like, like, like,
		)
	}

	if f.Frequency != "" && f.Frequency != FrequencyAll {
		db = db.Where("frequency = ?", f.Frequency)
	}

	if f.DateFrom != nil {
		db = db.Where("date >= ?", truncateDay(*f.DateFrom))
	}

	if f.DateTo != nil {
		db = db.Where("date <= ?", truncateDay(*f.DateTo))
	}

	if f.UserID != nil {
		db = db.Where("user_id = ?", *f.UserID)
	}

	return db
}

// Matches 判断单条记录是否满足过滤条件，语义与 Apply 完全一致
func (f *PaymentFilter) Matches(p *Payment) bool {
	if f == nil {
		return true
	}

	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Phone), term) &&
			!strings.Contains(strings.ToLower(p.InvoiceNo), term) {
			return false
		}
	}

	if f.Frequency != "" && f.Frequency != FrequencyAll {
		if p.Frequency != f.Frequency {
			return false
		}
	}

	day := truncateDay(p.Date)

	if f.DateFrom != nil && day.Before(truncateDay(*f.DateFrom)) {
		return false
	}

	if f.DateTo != nil && day.After(truncateDay(*f.DateTo)) {
		return false
	}

	if f.UserID != nil {
		if p.UserID == nil || *p.UserID != *f.UserID {
			return false
		}
	}

	return true
}

// FilterPayments 对内存中的记录集合应用过滤并按创建时间倒序排列，
// 降级读路径用它保证和数据库 ORDER BY created_at DESC 一致。
func (f *PaymentFilter) FilterPayments(payments []*Payment) []*Payment {
	matched := make([]*Payment, 0, len(payments))
	for _, p := range payments {
		if f.Matches(p) {
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
