package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"workforce-license-engine/internal/database"
	"workforce-license-engine/internal/model"
)

// sheetColumns 表头, A 列为组织ID
var sheetColumns = []interface{}{
	"ID", "Organization", "Type", "Contact", "Email", "State", "Trial Expires", "Licensed At", "Updated At",
}

// SheetSyncService 把组织许可证状态镜像到 Google Sheet, 供销售跟进
type SheetSyncService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	timeout       time.Duration
}

func NewSheetSyncService(enableSync bool, credentialPath, spreadsheetID, sheetName string) (*SheetSyncService, error) {
	if !enableSync {
		return nil, nil
	}

	ctx := context.Background()

	// 读取凭证文件
	b, err := os.ReadFile(credentialPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	// 使用服务账号授权
	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("load sheets credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &SheetSyncService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		timeout:       15 * time.Second,
	}, nil
}

// OrganizationRow 组织在表格中的一行, 状态按 now 计算
func OrganizationRow(org *model.Organization, now time.Time) []interface{} {
	return []interface{}{
		org.ID,
		sanitizeCell(org.Name),
		sanitizeCell(org.Type),
		sanitizeCell(org.ContactName),
		sanitizeCell(org.ContactEmail),
		string(org.StateAt(now)),
		formatSheetTime(org.TrialExpiresAt),
		formatSheetTime(org.LicensedAt),
		org.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatSheetTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// SyncOrganization 按ID更新或追加一行
func (s *SheetSyncService) SyncOrganization(org *model.Organization) error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	log := zap.L().With(zap.String("org_id", org.ID), zap.String("sheet", s.sheetName))

	// 先检查Sheet中是否已存在该组织
	keyResp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A2:A").Context(ctx).Do()
	if err != nil {
		log.Error("read sheet keys failed", zap.Error(err))
		return fmt.Errorf("read sheet keys: %w", err)
	}

	rowIndex := 0
	for i, row := range keyResp.Values {
		if len(row) > 0 && row[0] == org.ID {
			rowIndex = i + 2 // 数据从第2行开始
			break
		}
	}

	values := [][]interface{}{OrganizationRow(org, Now())}

	if rowIndex > 0 {
		rangeData := fmt.Sprintf("%s!A%d:I%d", s.sheetName, rowIndex, rowIndex)
		_, err = s.service.Spreadsheets.Values.Update(
			s.spreadsheetID,
			rangeData,
			&sheets.ValueRange{Values: values},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	} else {
		_, err = s.service.Spreadsheets.Values.Append(
			s.spreadsheetID,
			s.sheetName+"!A2:I",
			&sheets.ValueRange{Values: values},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	}
	if err != nil {
		log.Error("sync organization to sheet failed", zap.Error(err))
		return fmt.Errorf("sync organization to sheet: %w", err)
	}

	log.Info("synced organization to sheet", zap.Bool("updated", rowIndex > 0))
	return nil
}

// BatchSyncOrganizations 重写整张表 (表头 + 全部组织)
func (s *SheetSyncService) BatchSyncOrganizations(orgs []model.Organization) error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	now := Now()
	values := [][]interface{}{sheetColumns}
	for i := range orgs {
		values = append(values, OrganizationRow(&orgs[i], now))
	}

	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetName+"!A:I", &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	_, err := s.service.Spreadsheets.Values.Update(
		s.spreadsheetID,
		s.sheetName+"!A1:I",
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		zap.L().Error("batch sync organizations failed", zap.Error(err))
		return fmt.Errorf("batch sync organizations: %w", err)
	}

	zap.L().Info("batch synced organizations", zap.Int("count", len(orgs)))
	return nil
}

// ResyncSheet 启动时用数据库中的全部组织重建表格
func (s *SheetSyncService) ResyncSheet() error {
	if s == nil {
		return nil
	}
	var orgs []model.Organization
	if err := database.DB.Order("created_at ASC").Find(&orgs).Error; err != nil {
		return fmt.Errorf("load organizations: %w", err)
	}
	return s.BatchSyncOrganizations(orgs)
}
