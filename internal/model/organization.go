package model

import (
	"time"

	"workforce-license-engine/internal/license"
)

// Organization 组织的许可证记录. 状态不落库, 每次读取时由日期重新计算
type Organization struct {
	ID               string     `json:"id" gorm:"primaryKey;size:36"`
	Name             string     `json:"organization_name" gorm:"not null"`
	Type             string     `json:"organization_type" gorm:"not null"`
	ContactName      string     `json:"contact_name"`
	ContactEmail     string     `json:"contact_email" gorm:"index"`
	TrialStartedAt   *time.Time `json:"trial_started_at"`
	TrialExpiresAt   *time.Time `json:"trial_expires_at"`
	LicensedAt       *time.Time `json:"licensed_at"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	UpgradedBy       uint       `json:"upgraded_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// LicenseInfo 转换为许可证引擎的记录
func (o *Organization) LicenseInfo() license.Info {
	return license.Info{
		TrialStartedAt:   o.TrialStartedAt,
		TrialExpiresAt:   o.TrialExpiresAt,
		LicensedAt:       o.LicensedAt,
		OrganizationName: o.Name,
		OrganizationType: license.OrganizationType(o.Type),
		ContactName:      o.ContactName,
		ContactEmail:     o.ContactEmail,
	}
}

// StateAt 计算 now 时刻的许可证状态
func (o *Organization) StateAt(now time.Time) license.State {
	return o.LicenseInfo().StateAt(now)
}

// DaysRemainingAt 试用剩余天数, 非试用状态为 0
func (o *Organization) DaysRemainingAt(now time.Time) int {
	if o.StateAt(now) != license.StateTrial {
		return 0
	}
	return license.TrialDaysRemainingAt(o.TrialExpiresAt, now)
}

// ApplyLicenseInfo 把引擎返回的日期写回记录
func (o *Organization) ApplyLicenseInfo(info license.Info) {
	o.TrialStartedAt = info.TrialStartedAt
	o.TrialExpiresAt = info.TrialExpiresAt
	o.LicensedAt = info.LicensedAt
	o.Name = info.OrganizationName
	o.Type = string(info.OrganizationType)
	o.ContactName = info.ContactName
	o.ContactEmail = info.ContactEmail
}

// OrganizationView 带计算状态的响应结构
type OrganizationView struct {
	Organization
	State         license.State `json:"state"`
	DaysRemaining int           `json:"days_remaining"`
}

func NewOrganizationView(o *Organization, now time.Time) OrganizationView {
	return OrganizationView{
		Organization:  *o,
		State:         o.StateAt(now),
		DaysRemaining: o.DaysRemainingAt(now),
	}
}
