package model

import (
	"time"
)

const (
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// StatusPaid 缴款记录的默认状态
const StatusPaid = "Paid"

// IsValidFrequency 校验缴款周期取值
func IsValidFrequency(frequency string) bool {
	switch frequency {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Payment 缴款记录表
// InvoiceNo 全局唯一；UserID 是创建者，决定删除权限，允许为空（历史数据）。
// JSON 字段沿用前端的驼峰命名，保持线上接口兼容。
type Payment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNo string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"invoiceNo"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(255);not null" json:"phone"`
	Location  string    `gorm:"type:varchar(255);not null" json:"location"`
	Amount    float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Frequency string    `gorm:"type:varchar(20);not null" json:"frequency"`
	Date      time.Time `gorm:"type:date;not null" json:"date"`
	Status    string    `gorm:"type:varchar(255);not null;default:Paid" json:"status"`
	UserID    *int64    `gorm:"index" json:"userId"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Payment) TableName() string {
	return "payments"
}
