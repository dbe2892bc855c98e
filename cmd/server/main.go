package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/pledgelog/internal/config"
	"github.com/pledgelog/internal/db"
	"github.com/pledgelog/internal/handler"
	"github.com/pledgelog/internal/router"
)

func main() {
	// 本地开发时从 .env 读取环境变量，文件不存在则忽略
	_ = godotenv.Load()

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 确保后台管理账号存在
	if err := db.EnsureUser(cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	api := handler.NewAPI(db.DB)

	// 首次启动可选写入演示数据
	if cfg.SeedSampleData {
		if err := api.Habits().EnsureSampleData(); err != nil {
			log.Fatalf("failed to seed sample data: %v", err)
		}
	}

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
