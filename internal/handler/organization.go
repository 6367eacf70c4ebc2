package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"workforce-license-engine/internal/license"
	"workforce-license-engine/internal/middleware"
	"workforce-license-engine/internal/model"
	"workforce-license-engine/internal/service"
	"workforce-license-engine/internal/util"
)

var sheetSync *service.SheetSyncService

func InitSheetSync(enableSync bool, credentialPath, spreadsheetID, sheetName string) (*service.SheetSyncService, error) {
	var err error
	sheetSync, err = service.NewSheetSyncService(enableSync, credentialPath, spreadsheetID, sheetName)
	return sheetSync, err
}

func syncToSheet(org *model.Organization) {
	if sheetSync == nil {
		return
	}
	go func() {
		if err := sheetSync.SyncOrganization(org); err != nil {
			zap.L().Warn("sheet sync failed", zap.String("org_id", org.ID), zap.Error(err))
		}
	}()
}

// HandleTrialSignup 组织注册并开始试用
func HandleTrialSignup(c *fiber.Ctx) error {
	input := new(model.TrialSignupInput)
	if err := c.BodyParser(input); err != nil {
		return invalidInput(c)
	}
	if fields := util.ValidateStruct(input); fields != nil {
		return validationFailed(c, fields)
	}

	org, err := service.CreateTrial(input)
	if err != nil {
		return err
	}
	syncToSheet(org)

	return c.Status(fiber.StatusCreated).JSON(model.NewOrganizationView(org, service.Now()))
}

// HandleListOrganizations 管理员查询组织列表, 可按 state 过滤
func HandleListOrganizations(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))

	state := license.State(c.Query("state"))
	if state != "" && !state.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown state",
		})
	}

	page, pageSize = service.NormalizePage(page, pageSize)
	orgs, total, err := service.ListOrganizations(state, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"organizations": orgs,
		"total":         total,
		"page":          page,
		"size":          pageSize,
	})
}

// HandleGetOrganization 获取单个组织
func HandleGetOrganization(c *fiber.Ctx) error {
	org := middleware.GetOrganization(c)
	return c.JSON(model.NewOrganizationView(org, service.Now()))
}

// HandleUpgradeOrganization 付款确认后升级为正式许可证
func HandleUpgradeOrganization(c *fiber.Ctx) error {
	input := new(model.UpgradeInput)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(input); err != nil {
			return invalidInput(c)
		}
	}
	if fields := util.ValidateStruct(input); fields != nil {
		return validationFailed(c, fields)
	}

	adminID, _ := c.Locals("userID").(uint)
	org, changed, err := service.Upgrade(c.Params("id"), adminID, input.PaymentReference)
	if err != nil {
		return err
	}
	if changed {
		syncToSheet(org)
	}

	return c.JSON(fiber.Map{
		"upgraded":     changed,
		"organization": model.NewOrganizationView(org, service.Now()),
	})
}

// HandleLicenseStatus 横幅信息
func HandleLicenseStatus(c *fiber.Ctx) error {
	org := middleware.GetOrganization(c)
	now := service.Now()
	state := org.StateAt(now)

	return c.JSON(fiber.Map{
		"state":          state,
		"message":        license.StatusMessageAt(state, org.TrialExpiresAt, now),
		"banner":         license.LicenseBannerType(state),
		"days_remaining": org.DaysRemainingAt(now),
		"read_only":      license.IsReadOnlyMode(state),
		"can_admin":      license.CanPerformAdminActions(state),
	})
}
