package model

import (
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// User 平台运营账户 (管理员负责确认付款并升级许可证)
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"unique;not null"`
	Password  string    `json:"-" gorm:"not null"`
	Email     string    `json:"email" gorm:"unique;not null"`
	Role      string    `json:"role" gorm:"default:'operator'"`
	Status    string    `json:"status" gorm:"default:'active'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastLogin time.Time `json:"last_login"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
