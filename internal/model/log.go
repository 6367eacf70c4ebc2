package model

import "time"

const (
	ActionTrialCreated    = "trial_created"
	ActionLicenseUpgraded = "license_upgraded"
	ActionUserRegistered  = "user_registered"
	ActionPasswordChanged = "password_changed"
)

// OperationLog 操作审计日志
type OperationLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	TargetID  string    `json:"target_id" gorm:"index"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
