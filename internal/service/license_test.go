package service

import (
	"bytes"
	"encoding/csv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce-license-engine/internal/database"
	"workforce-license-engine/internal/license"
	"workforce-license-engine/internal/model"
)

var start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) {
	t.Helper()
	database.InitTestDB()
	setNow(t, start)
	t.Cleanup(database.CleanTestDB)
}

func setNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := Now
	Now = func() time.Time { return at }
	t.Cleanup(func() { Now = prev })
}

func signup(t *testing.T, name string) *model.Organization {
	t.Helper()
	org, err := CreateTrial(&model.TrialSignupInput{
		OrganizationName: name,
		OrganizationType: "training_provider",
		ContactName:      "Jane Doe",
		ContactEmail:     "jane@acme.org",
	})
	require.NoError(t, err)
	return org
}

func TestCreateTrial(t *testing.T) {
	setup(t)

	org := signup(t, "Acme Corp")
	assert.NotEmpty(t, org.ID)
	require.NotNil(t, org.TrialExpiresAt)
	assert.True(t, org.TrialExpiresAt.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, org.LicensedAt)

	stored, err := GetOrganization(org.ID)
	require.NoError(t, err)
	assert.Equal(t, license.StateTrial, stored.StateAt(start))
	assert.Equal(t, license.StateExpired, stored.StateAt(time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)))

	logs, total, err := GetOperationLogs(LogQuery{TargetID: org.ID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, model.ActionTrialCreated, logs[0].Action)
}

func TestCreateTrial_NilInput(t *testing.T) {
	setup(t)
	_, err := CreateTrial(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetOrganization_NotFound(t *testing.T) {
	setup(t)
	_, err := GetOrganization("missing")
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestUpgrade(t *testing.T) {
	setup(t)
	org := signup(t, "Acme Corp")

	// 试用已过期后再付款
	paidAt := start.AddDate(0, 1, 0)
	setNow(t, paidAt)

	upgraded, changed, err := Upgrade(org.ID, 1, "sub_123")
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, upgraded.LicensedAt)
	assert.True(t, upgraded.LicensedAt.Equal(paidAt))
	assert.Equal(t, "sub_123", upgraded.PaymentReference)
	assert.Equal(t, uint(1), upgraded.UpgradedBy)
	assert.Equal(t, license.StateLicensed, upgraded.StateAt(paidAt))
	assert.True(t, upgraded.TrialExpiresAt.Equal(*org.TrialExpiresAt), "trial dates are kept")

	t.Run("second upgrade is a no-op", func(t *testing.T) {
		setNow(t, paidAt.AddDate(0, 0, 5))
		again, changed, err := Upgrade(org.ID, 2, "sub_456")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, license.StateLicensed, again.StateAt(paidAt.AddDate(1, 0, 0)))
		assert.Equal(t, "sub_123", again.PaymentReference)
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, _, err := Upgrade("missing", 1, "")
		assert.ErrorIs(t, err, ErrOrganizationNotFound)
	})
}

func TestUpgrade_Concurrent(t *testing.T) {
	setup(t)
	org := signup(t, "Acme Corp")

	var wg sync.WaitGroup
	var mu sync.Mutex
	changedCount := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := Upgrade(org.ID, 1, "sub_race")
			if err == nil && changed {
				mu.Lock()
				changedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, changedCount)
	stored, err := GetOrganization(org.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LicensedAt)
}

func TestListOrganizations(t *testing.T) {
	setup(t)
	a := signup(t, "A")
	signup(t, "B")
	_, _, err := Upgrade(a.ID, 1, "")
	require.NoError(t, err)

	views, total, err := ListOrganizations("", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, views, 2)

	licensed, total, err := ListOrganizations(license.StateLicensed, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, a.ID, licensed[0].ID)

	setNow(t, start.AddDate(0, 0, 20))
	expired, total, err := ListOrganizations(license.StateExpired, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "B", expired[0].Name)

	empty, total, err := ListOrganizations("", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Empty(t, empty)
}

func TestCheckFeature(t *testing.T) {
	setup(t)
	org := signup(t, "Acme Corp")
	meta := RequestMeta{IP: "10.0.0.1", UserAgent: "test"}

	d, err := CheckFeature(org, license.FeatureCertificates, meta)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, license.StateTrial, d.State)
	assert.Contains(t, d.Message, "not available during the trial")

	d, err = CheckFeature(org, license.FeatureProgramSetup, meta)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Message)

	checks, err := GetFeatureChecks(org.ID, 10)
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, "10.0.0.1", checks[0].IPAddress)

	report, err := OrganizationReport(org)
	require.NoError(t, err)
	assert.Equal(t, "trial", report.State)
	assert.Equal(t, []model.FeatureUsageLine{
		{Feature: "certificate_issuance", Allowed: 0, Denied: 1},
		{Feature: "program_setup", Allowed: 1, Denied: 0},
	}, report.Features)
}

func TestExportFeatureChecksCSV(t *testing.T) {
	setup(t)
	org := signup(t, "Acme Corp")
	_, err := CheckFeature(org, license.FeatureBulkImports, RequestMeta{IP: "1.2.3.4"})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := ExportFeatureChecksCSV(org.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, featureCheckCSVHeader, records[0])
	assert.Equal(t, []string{"2025-01-01T00:00:00Z", "bulk_imports", "trial", "false", "1.2.3.4", ""}, records[1])
}

func TestLicenseStatistics(t *testing.T) {
	setup(t)
	a := signup(t, "A")
	b := signup(t, "B")
	_, _, err := Upgrade(a.ID, 1, "")
	require.NoError(t, err)
	_, err = CheckFeature(b, license.FeatureIntegrations, RequestMeta{})
	require.NoError(t, err)
	_, err = CheckFeature(b, license.FeatureUINavigation, RequestMeta{})
	require.NoError(t, err)

	// 第12天: B 剩余2天
	setNow(t, start.AddDate(0, 0, 12))
	stats, err := LicenseStatistics(30)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalOrganizations)
	assert.Equal(t, 1, stats.GetStateCount("licensed"))
	assert.Equal(t, 1, stats.GetStateCount("trial"))
	assert.Equal(t, 0, stats.GetStateCount("expired"))
	assert.Equal(t, 1, stats.TrialsEndingSoon)
	assert.Equal(t, 2, stats.ByType["training_provider"])
	assert.Equal(t, int64(2), stats.TotalChecks)
	assert.Equal(t, int64(1), stats.DeniedChecks)
	assert.Equal(t, 1, stats.DeniedByFeature["integrations"])
	assert.InDelta(t, 0.5, stats.GetDenialRate(), 1e-9)
	require.Len(t, stats.DailyChecks, 1)
	assert.Equal(t, model.DailyChecks{Date: "2025-01-01", Total: 2, Denied: 1, Allowed: 1}, stats.DailyChecks[0])
}

func TestExportFeatureChecksCSV_FormulaValues(t *testing.T) {
	setup(t)
	org := signup(t, "Acme Corp")

	_, err := CheckFeature(org, license.FeatureBulkImports, RequestMeta{IP: "1.1.1.1", UserAgent: "=cmd|'/c calc'!A1"})
	require.NoError(t, err)
	// 旧数据里可能存在任意功能名
	require.NoError(t, RecordFeatureCheck(org.ID, &FeatureDecision{
		Feature: license.Feature(`=HYPERLINK("http://evil")`),
		State:   license.StateTrial,
	}, RequestMeta{IP: "@1.1.1.1", UserAgent: "+1"}, start.Add(time.Minute)))

	var buf bytes.Buffer
	_, err = ExportFeatureChecksCSV(org.ID, &buf)
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "bulk_imports", records[1][1])
	assert.Equal(t, "'=cmd|'/c calc'!A1", records[1][5])
	assert.Equal(t, `'=HYPERLINK("http://evil")`, records[2][1])
	assert.Equal(t, "'@1.1.1.1", records[2][4])
	assert.Equal(t, "'+1", records[2][5])
}

func TestSanitizeCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Acme Corp", "Acme Corp"},
		{"jane@acme.org", "jane@acme.org"},
		{"=SUM(A1:A2)", "'=SUM(A1:A2)"},
		{"+1", "'+1"},
		{"-1", "'-1"},
		{"@import", "'@import"},
		{"\tx", "'\tx"},
		{"\rx", "'\rx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeCell(tt.in), tt.in)
	}
}

func TestCheckFeature_UnknownNotRecorded(t *testing.T) {
	setup(t)
	org := signup(t, "Acme Corp")

	d, err := CheckFeature(org, license.Feature("nonexistent_key"), RequestMeta{})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Message, "nonexistent_key")

	checks, err := GetFeatureChecks(org.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, checks)

	stats, err := LicenseStatistics(30)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalChecks)
	assert.Empty(t, stats.DeniedByFeature)
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, size)

	page, size = NormalizePage(-3, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, size)

	page, size = NormalizePage(4, 25)
	assert.Equal(t, 4, page)
	assert.Equal(t, 25, size)
}
