package model

import (
	"time"
)

// UserInfo 客户意向表
// 收款员录入的客户最新缴款意向，按手机号整行覆盖（upsert），
// 与缴款记录之间没有外键，只靠手机号松散关联。
type UserInfo struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"phone"`
	Location  string    `gorm:"type:varchar(255)" json:"location"`
	Amount    float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Frequency string    `gorm:"type:varchar(20);not null" json:"frequency"`
	CreatedBy *int64    `gorm:"index" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (UserInfo) TableName() string {
	return "user_info"
}
