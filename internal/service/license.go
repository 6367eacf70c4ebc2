package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"workforce-license-engine/internal/database"
	"workforce-license-engine/internal/license"
	"workforce-license-engine/internal/model"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrInvalidInput         = errors.New("invalid input")
)

// Now 当前时间, 测试中可替换
var Now = func() time.Time { return time.Now().UTC() }

// RequestMeta 记录功能判定时的请求来源
type RequestMeta struct {
	IP        string
	UserAgent string
}

// CreateTrial 创建组织并开始14天试用
func CreateTrial(input *model.TrialSignupInput) (*model.Organization, error) {
	if input == nil {
		return nil, ErrInvalidInput
	}
	info := license.CreateTrialLicenseAt(
		input.OrganizationName,
		license.OrganizationType(input.OrganizationType),
		input.ContactName,
		input.ContactEmail,
		Now(),
	)

	org := &model.Organization{ID: uuid.NewString()}
	org.ApplyLicenseInfo(info)

	if err := database.DB.Create(org).Error; err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}

	zap.L().Info("trial started",
		zap.String("org_id", org.ID),
		zap.String("org_type", org.Type),
		zap.Timep("trial_expires_at", org.TrialExpiresAt),
	)
	if err := LogOperation(0, model.ActionTrialCreated, "organization", org.ID, input); err != nil {
		zap.L().Warn("log operation failed", zap.Error(err))
	}
	return org, nil
}

// GetOrganization 按ID查询组织
func GetOrganization(id string) (*model.Organization, error) {
	var org model.Organization
	err := database.DB.Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization %s: %w", id, err)
	}
	return &org, nil
}

// NormalizePage 页码至少为 1, 每页 1 到 100 条, 默认 10
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ListOrganizations 分页查询组织, state 为空时不过滤.
// 状态不落库, 过滤在内存中完成
func ListOrganizations(state license.State, page, pageSize int) ([]model.OrganizationView, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)

	var orgs []model.Organization
	if err := database.DB.Order("created_at DESC").Find(&orgs).Error; err != nil {
		return nil, 0, fmt.Errorf("list organizations: %w", err)
	}

	now := Now()
	views := make([]model.OrganizationView, 0, len(orgs))
	for i := range orgs {
		v := model.NewOrganizationView(&orgs[i], now)
		if state != "" && v.State != state {
			continue
		}
		views = append(views, v)
	}

	total := int64(len(views))
	offset := (page - 1) * pageSize
	if offset >= len(views) {
		return []model.OrganizationView{}, total, nil
	}
	end := offset + pageSize
	if end > len(views) {
		end = len(views)
	}
	return views[offset:end], total, nil
}

// Upgrade 付款确认后转为正式许可证. 已授权的记录原样返回, changed 为 false.
// 更新带 licensed_at IS NULL 条件, 并发升级只有一个生效
func Upgrade(id string, adminID uint, paymentRef string) (org *model.Organization, changed bool, err error) {
	org, err = GetOrganization(id)
	if err != nil {
		return nil, false, err
	}
	if org.LicensedAt != nil {
		return org, false, nil
	}

	now := Now()
	upgraded := license.UpgradeToLicenseAt(org.LicenseInfo(), now)

	result := database.DB.Model(&model.Organization{}).
		Where("id = ? AND licensed_at IS NULL", id).
		Updates(map[string]interface{}{
			"licensed_at":       upgraded.LicensedAt,
			"payment_reference": paymentRef,
			"upgraded_by":       adminID,
			"updated_at":        now,
		})
	if result.Error != nil {
		return nil, false, fmt.Errorf("upgrade organization %s: %w", id, result.Error)
	}

	org, err = GetOrganization(id)
	if err != nil {
		return nil, false, err
	}
	if result.RowsAffected == 0 {
		// 并发请求已先完成升级
		return org, false, nil
	}

	zap.L().Info("license activated",
		zap.String("org_id", id),
		zap.Uint("admin_id", adminID),
		zap.String("payment_reference", paymentRef),
	)
	if err := LogOperation(adminID, model.ActionLicenseUpgraded, "organization", id, map[string]string{
		"payment_reference": paymentRef,
	}); err != nil {
		zap.L().Warn("log operation failed", zap.Error(err))
	}
	return org, true, nil
}

// FeatureDecision 单次功能判定结果
type FeatureDecision struct {
	Feature license.Feature `json:"feature"`
	State   license.State   `json:"state"`
	Allowed bool            `json:"allowed"`
	Message string          `json:"message,omitempty"`
}

// CheckFeature 判定组织当前能否使用功能, 并写入判定记录.
// 未知功能直接拒绝, 不写记录
func CheckFeature(org *model.Organization, feature license.Feature, meta RequestMeta) (*FeatureDecision, error) {
	now := Now()
	state := org.StateAt(now)
	decision := &FeatureDecision{
		Feature: feature,
		State:   state,
		Allowed: license.CanAccessFeature(feature, state),
		Message: license.RestrictionMessage(feature, state),
	}
	if _, ok := license.Lookup(feature); !ok {
		return decision, nil
	}
	if err := RecordFeatureCheck(org.ID, decision, meta, now); err != nil {
		return decision, err
	}
	return decision, nil
}

// RecordFeatureCheck 写入功能判定记录
func RecordFeatureCheck(orgID string, d *FeatureDecision, meta RequestMeta, at time.Time) error {
	check := &model.FeatureCheck{
		OrganizationID: orgID,
		Feature:        string(d.Feature),
		State:          string(d.State),
		Allowed:        d.Allowed,
		IPAddress:      meta.IP,
		UserAgent:      meta.UserAgent,
		Timestamp:      at.UTC(),
	}
	if err := database.DB.Create(check).Error; err != nil {
		return fmt.Errorf("record feature check: %w", err)
	}
	if !d.Allowed {
		zap.L().Debug("feature access denied",
			zap.String("org_id", orgID),
			zap.String("feature", string(d.Feature)),
			zap.String("state", string(d.State)),
		)
	}
	return nil
}

// GetFeatureChecks 查询组织最近的判定记录
func GetFeatureChecks(orgID string, limit int) ([]model.FeatureCheck, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	var checks []model.FeatureCheck
	err := database.DB.Where("organization_id = ?", orgID).
		Order("timestamp desc, id desc").
		Limit(limit).
		Find(&checks).Error
	if err != nil {
		return nil, fmt.Errorf("get feature checks: %w", err)
	}
	return checks, nil
}

// OrganizationReport 按功能汇总组织的判定记录
func OrganizationReport(org *model.Organization) (*model.FeatureReport, error) {
	var rows []struct {
		Feature string
		Allowed bool
		Count   int
	}
	err := database.DB.Model(&model.FeatureCheck{}).
		Select("feature, allowed, count(*) as count").
		Where("organization_id = ?", org.ID).
		Group("feature, allowed").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}

	byFeature := make(map[string]*model.FeatureUsageLine)
	for _, r := range rows {
		line, ok := byFeature[r.Feature]
		if !ok {
			line = &model.FeatureUsageLine{Feature: r.Feature}
			byFeature[r.Feature] = line
		}
		if r.Allowed {
			line.Allowed += r.Count
		} else {
			line.Denied += r.Count
		}
	}

	report := &model.FeatureReport{
		OrganizationID: org.ID,
		State:          string(org.StateAt(Now())),
		Features:       make([]model.FeatureUsageLine, 0, len(byFeature)),
	}
	for _, line := range byFeature {
		report.Features = append(report.Features, *line)
	}
	sort.Slice(report.Features, func(i, j int) bool {
		return report.Features[i].Feature < report.Features[j].Feature
	})
	return report, nil
}
