package migration

import (
	"github.com/smallbiznis/staypoint/internal/config"
	"github.com/smallbiznis/staypoint/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned migrations target postgres; sqlite is test-only and
		// mysql installs manage schema out of band.
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.DefaultBusinessID != 0 {
			if err := seed.EnsureMainBusinessWithID(conn, cfg.DefaultBusinessID); err != nil {
				return err
			}
		} else {
			if err := seed.EnsureMainBusiness(conn); err != nil {
				return err
			}
		}
		if !cfg.IsCloud() && cfg.Bootstrap.SeedDemoData {
			return seed.EnsureDemoProperty(conn)
		}
		return nil
	}),
)
