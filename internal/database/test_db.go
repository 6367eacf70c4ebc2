package database

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TestAdmin 测试数据库中的管理员
var TestAdmin = AdminAccount{Username: "admin", Password: "admin-password", Email: "admin@example.com"}

func InitTestDB() {
	var err error
	DB, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic("failed to connect test database")
	}
	// 内存库共享缓存下并发写会互相锁表, 测试中串行化连接
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := migrate(DB); err != nil {
		panic("failed to migrate test database")
	}
	if err := seedAdmin(DB, TestAdmin); err != nil {
		panic("failed to seed test database")
	}
}

func CleanTestDB() {
	sqlDB, err := DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
