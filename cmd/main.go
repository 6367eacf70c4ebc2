package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"

	"workforce-license-engine/internal/config"
	"workforce-license-engine/internal/database"
	"workforce-license-engine/internal/handler"
	"workforce-license-engine/internal/logger"
	"workforce-license-engine/internal/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	l, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer l.Sync()

	for _, key := range cfg.InsecureDefaults() {
		l.Warn("insecure default in use, override it before going to production", zap.String("key", key))
	}

	util.SetTokenConfig(cfg.JWT.Secret, cfg.JWT.TTL)

	// 初始化数据库
	if err := database.InitDB(cfg.Database.Path, database.AdminAccount{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
		Email:    cfg.Admin.Email,
	}); err != nil {
		l.Fatal("init database", zap.Error(err))
	}

	// 初始化表格同步, 失败不影响启动
	sheetSync, err := handler.InitSheetSync(cfg.Sheets.Enabled, cfg.Sheets.CredentialPath, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName)
	if err != nil {
		l.Warn("sheet sync disabled", zap.Error(err))
	} else if sheetSync != nil {
		go func() {
			if err := sheetSync.ResyncSheet(); err != nil {
				l.Warn("initial sheet resync failed", zap.Error(err))
			}
		}()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
	})

	// 中间件
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	handler.SetupRoutes(app)

	l.Info("listening", zap.String("addr", cfg.Server.Addr))
	if err := app.Listen(cfg.Server.Addr); err != nil {
		l.Fatal("server stopped", zap.Error(err))
	}
}
