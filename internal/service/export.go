package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"workforce-license-engine/internal/database"
	"workforce-license-engine/internal/model"
)

var featureCheckCSVHeader = []string{"timestamp", "feature", "state", "allowed", "ip_address", "user_agent"}

// sanitizeCell 以公式字符开头的值前加 ', 表格软件按文本处理
func sanitizeCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

// ExportFeatureChecksCSV 以 CSV 导出组织的全部判定记录
func ExportFeatureChecksCSV(orgID string, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(featureCheckCSVHeader); err != nil {
		return 0, err
	}

	var checks []model.FeatureCheck
	err := database.DB.Where("organization_id = ?", orgID).Order("timestamp asc, id asc").Find(&checks).Error
	if err != nil {
		return 0, fmt.Errorf("load feature checks: %w", err)
	}

	for _, c := range checks {
		record := []string{
			c.Timestamp.UTC().Format(time.RFC3339),
			sanitizeCell(c.Feature),
			sanitizeCell(c.State),
			strconv.FormatBool(c.Allowed),
			sanitizeCell(c.IPAddress),
			sanitizeCell(c.UserAgent),
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(checks), cw.Error()
}
