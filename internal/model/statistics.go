package model

import "time"

// DailyChecks 每日功能判定统计
type DailyChecks struct {
	Date    string `json:"date"`
	Total   int    `json:"total"`
	Denied  int    `json:"denied"`
	Allowed int    `json:"allowed"`
}

// LicenseStatistics 许可证统计信息
type LicenseStatistics struct {
	GeneratedAt        time.Time      `json:"generated_at"`
	TotalOrganizations int64          `json:"total_organizations"`
	ByState            map[string]int `json:"by_state"`
	ByType             map[string]int `json:"by_type"`
	TrialsEndingSoon   int            `json:"trials_ending_soon"`
	TotalChecks        int64          `json:"total_checks"`
	DeniedChecks       int64          `json:"denied_checks"`
	DeniedByFeature    map[string]int `json:"denied_by_feature"`
	DailyChecks        []DailyChecks  `json:"daily_checks"`
}

// GetDenialRate 计算拒绝率
func (ls *LicenseStatistics) GetDenialRate() float64 {
	if ls.TotalChecks == 0 {
		return 0
	}
	return float64(ls.DeniedChecks) / float64(ls.TotalChecks)
}

// GetStateCount 获取指定状态的组织数
func (ls *LicenseStatistics) GetStateCount(state string) int {
	if count, ok := ls.ByState[state]; ok {
		return count
	}
	return 0
}

// FeatureReport 单个组织的功能使用报告
type FeatureReport struct {
	OrganizationID string             `json:"organization_id"`
	State          string             `json:"state"`
	Features       []FeatureUsageLine `json:"features"`
}

type FeatureUsageLine struct {
	Feature string `json:"feature"`
	Allowed int    `json:"allowed"`
	Denied  int    `json:"denied"`
}
