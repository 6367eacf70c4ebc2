package model

import "time"

// FeatureCheck 功能访问判定记录
type FeatureCheck struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"index;size:36"`
	Feature        string    `json:"feature" gorm:"index"`
	State          string    `json:"state"`
	Allowed        bool      `json:"allowed"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	Timestamp      time.Time `json:"timestamp" gorm:"index"`
}
