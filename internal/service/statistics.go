package service

import (
	"fmt"
	"sort"
	"time"

	"workforce-license-engine/internal/database"
	"workforce-license-engine/internal/license"
	"workforce-license-engine/internal/model"
)

// EndingSoonDays 试用剩余天数小于等于此值时计入即将到期
const EndingSoonDays = 3

// LicenseStatistics 统计组织状态和功能判定情况, days 为每日统计的天数
func LicenseStatistics(days int) (*model.LicenseStatistics, error) {
	if days < 1 || days > 90 {
		days = 30
	}
	now := Now()
	db := database.DB

	stats := &model.LicenseStatistics{
		GeneratedAt:     now,
		ByState:         make(map[string]int),
		ByType:          make(map[string]int),
		DeniedByFeature: make(map[string]int),
		DailyChecks:     make([]model.DailyChecks, 0),
	}
	for _, s := range license.States() {
		stats.ByState[string(s)] = 0
	}

	// 状态不落库, 按日期重新计算
	var orgs []model.Organization
	if err := db.Select("id", "type", "trial_started_at", "trial_expires_at", "licensed_at").Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("load organizations: %w", err)
	}
	stats.TotalOrganizations = int64(len(orgs))
	for i := range orgs {
		state := orgs[i].StateAt(now)
		stats.ByState[string(state)]++
		stats.ByType[orgs[i].Type]++
		if state == license.StateTrial && license.TrialDaysRemainingAt(orgs[i].TrialExpiresAt, now) <= EndingSoonDays {
			stats.TrialsEndingSoon++
		}
	}

	if err := db.Model(&model.FeatureCheck{}).Count(&stats.TotalChecks).Error; err != nil {
		return nil, fmt.Errorf("count checks: %w", err)
	}
	if err := db.Model(&model.FeatureCheck{}).Where("allowed = ?", false).Count(&stats.DeniedChecks).Error; err != nil {
		return nil, fmt.Errorf("count denied checks: %w", err)
	}

	var denied []struct {
		Feature string
		Count   int
	}
	if err := db.Model(&model.FeatureCheck{}).
		Select("feature, count(*) as count").
		Where("allowed = ?", false).
		Group("feature").
		Scan(&denied).Error; err != nil {
		return nil, fmt.Errorf("count denials by feature: %w", err)
	}
	for _, d := range denied {
		stats.DeniedByFeature[d.Feature] = d.Count
	}

	// 每日统计
	since := now.AddDate(0, 0, -days)
	var checks []model.FeatureCheck
	if err := db.Select("allowed", "timestamp").Where("timestamp >= ?", since).Find(&checks).Error; err != nil {
		return nil, fmt.Errorf("load daily checks: %w", err)
	}
	daily := make(map[string]*model.DailyChecks)
	for _, c := range checks {
		key := c.Timestamp.UTC().Format(time.DateOnly)
		d, ok := daily[key]
		if !ok {
			d = &model.DailyChecks{Date: key}
			daily[key] = d
		}
		d.Total++
		if c.Allowed {
			d.Allowed++
		} else {
			d.Denied++
		}
	}
	for _, d := range daily {
		stats.DailyChecks = append(stats.DailyChecks, *d)
	}
	sort.Slice(stats.DailyChecks, func(i, j int) bool {
		return stats.DailyChecks[i].Date < stats.DailyChecks[j].Date
	})

	return stats, nil
}
