package service

import (
	"encoding/json"
	"time"

	"workforce-license-engine/internal/database"
	"workforce-license-engine/internal/model"
)

// LogOperation 写入操作审计日志, userID 为 0 表示公开接口
func LogOperation(userID uint, action string, target string, targetID string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}

	log := &model.OperationLog{
		UserID:    userID,
		Action:    action,
		Target:    target,
		TargetID:  targetID,
		Details:   string(detailsJSON),
		CreatedAt: Now(),
	}

	return database.DB.Create(log).Error
}

// LogQuery 操作日志查询条件
type LogQuery struct {
	UserID   uint
	TargetID string
	Action   string
	Since    time.Time
}

// GetOperationLogs 分页查询操作日志
func GetOperationLogs(q LogQuery, page, pageSize int) ([]model.OperationLog, int64, error) {
	var logs []model.OperationLog
	var total int64

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	db := database.DB.Model(&model.OperationLog{})
	if q.UserID != 0 {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.TargetID != "" {
		db = db.Where("target_id = ?", q.TargetID)
	}
	if q.Action != "" {
		db = db.Where("action = ?", q.Action)
	}
	if !q.Since.IsZero() {
		db = db.Where("created_at >= ?", q.Since.UTC())
	}

	// 获取总数
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 获取分页数据
	offset := (page - 1) * pageSize
	if err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
