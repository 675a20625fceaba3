package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// 工单库结构随二进制发布，服务启动时自行对齐，不依赖外部迁移工具
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations 应用内嵌的工单库迁移，幂等：已应用的版本直接跳过
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	before, _, _ := m.Version()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, _ := m.Version()
	switch {
	case dirty:
		logger.Warn("工单库迁移处于 dirty 状态，需人工介入",
			zap.Uint("version", version))
	case version == before:
		logger.Info("工单库结构已是最新", zap.Uint("version", version))
	default:
		logger.Info("工单库迁移完成",
			zap.Uint("from", before),
			zap.Uint("to", version))
	}

	return nil
}
