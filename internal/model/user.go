package model

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User 账号表
// Password 存 bcrypt 哈希，序列化时永远不输出
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(20);not null;default:user" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanModifyPayment 缴款记录的操作权限判定
// 管理员可以操作任何记录；普通用户只能操作自己创建的记录。
// ownerID 为 nil 表示记录没有归属人，此时只有管理员可以操作。
func CanModifyPayment(role string, ownerID *int64, callerID int64) bool {
	if role == RoleAdmin {
		return true
	}
	return ownerID != nil && *ownerID == callerID
}
