package handler

import (
	"bytes"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"workforce-license-engine/internal/license"
	"workforce-license-engine/internal/middleware"
	"workforce-license-engine/internal/service"
)

type featureMatrixEntry struct {
	Feature license.Feature `json:"feature"`
	license.FeatureAccess
}

// HandleFeatureMatrix 返回完整的功能权限表
func HandleFeatureMatrix(c *fiber.Ctx) error {
	features := license.AllFeatures()
	entries := make([]featureMatrixEntry, 0, len(features))
	for _, f := range features {
		fa, _ := license.Lookup(f)
		entries = append(entries, featureMatrixEntry{Feature: f, FeatureAccess: fa})
	}
	return c.JSON(fiber.Map{
		"features": entries,
	})
}

// HandleOrganizationFeatures 组织当前可用和受限的功能
func HandleOrganizationFeatures(c *fiber.Ctx) error {
	org := middleware.GetOrganization(c)
	state := org.StateAt(service.Now())

	return c.JSON(fiber.Map{
		"state":      state,
		"accessible": license.AccessibleFeatures(state),
		"restricted": license.RestrictedFeatures(state),
	})
}

// HandleCheckFeature 判定单个功能
func HandleCheckFeature(c *fiber.Ctx) error {
	org := middleware.GetOrganization(c)
	decision, err := service.CheckFeature(org, license.Feature(c.Params("feature")), service.RequestMeta{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}
	return c.JSON(decision)
}

// HandleFeatureChecks 组织最近的判定记录
func HandleFeatureChecks(c *fiber.Ctx) error {
	org := middleware.GetOrganization(c)
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	checks, err := service.GetFeatureChecks(org.ID, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"checks": checks,
	})
}

// HandleOrganizationReport 功能使用报告 (reporting_view)
func HandleOrganizationReport(c *fiber.Ctx) error {
	report, err := service.OrganizationReport(middleware.GetOrganization(c))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// HandleExportReport 导出判定记录 CSV (reporting_export)
func HandleExportReport(c *fiber.Ctx) error {
	org := middleware.GetOrganization(c)

	var buf bytes.Buffer
	if _, err := service.ExportFeatureChecksCSV(org.ID, &buf); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="feature-checks-`+org.ID+`.csv"`)
	return c.Send(buf.Bytes())
}
