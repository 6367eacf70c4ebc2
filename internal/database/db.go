package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"workforce-license-engine/internal/model"
)

var DB *gorm.DB

// AdminAccount 首次启动时创建的管理员
type AdminAccount struct {
	Username string
	Password string
	Email    string
}

// InitDB 打开 SQLite 数据库, 迁移模型并创建默认管理员
func InitDB(dbPath string, admin AdminAccount) error {
	// 创建数据目录
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	DB = db

	if err := migrate(DB); err != nil {
		return err
	}
	return seedAdmin(DB, admin)
}

func migrate(db *gorm.DB) error {
	// 自动迁移模型
	err := db.AutoMigrate(
		&model.User{},
		&model.Organization{},
		&model.FeatureCheck{},
		&model.OperationLog{},
		&model.LoginLog{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

func seedAdmin(db *gorm.DB, admin AdminAccount) error {
	// 检查是否已存在管理员账户
	var adminCount int64
	if err := db.Model(&model.User{}).Where("username = ?", admin.Username).Count(&adminCount).Error; err != nil {
		return fmt.Errorf("count admin: %w", err)
	}
	if adminCount > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user := &model.User{
		Username:  admin.Username,
		Password:  string(hashedPassword),
		Email:     admin.Email,
		Role:      model.RoleAdmin,
		Status:    "active",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	zap.L().Info("created default admin account", zap.String("username", admin.Username))
	return nil
}
