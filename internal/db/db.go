package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"dcim-inventory-backend/config"
	"dcim-inventory-backend/internal/model"
)

// Init opens the configured database, runs migrations and seeds the
// short ID counter.
func Init(cfg *config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if cfg.LogSQL {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info().Str("driver", cfg.Driver).Msg("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := SeedCounters(db); err != nil {
		return nil, err
	}

	log.Info().Msg("database initialization complete")
	return db, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.ShortIDCounter{},
		&model.ShortID{},
		&model.PrintTask{},
		&model.LegacyShortIDAllocation{},
		&model.DataCenter{},
		&model.Room{},
		&model.Cabinet{},
		&model.Device{},
		&model.Panel{},
		&model.Port{},
		&model.Cable{},
		&model.CableEndpoint{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// labelledTables carry a short_id column that may predate the pool.
var labelledTables = []any{
	&model.DataCenter{},
	&model.Room{},
	&model.Cabinet{},
	&model.Device{},
	&model.Panel{},
	&model.Port{},
	&model.CableEndpoint{},
}

// SeedCounters makes sure the global counter row exists and is not behind
// any value already present in the pool, in the legacy allocation table or
// on an inventory row, so generation never hands out a label that is
// already in use.
func SeedCounters(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var poolMax, legacyMax int64
		if err := tx.Model(&model.ShortID{}).Select("COALESCE(MAX(value), 0)").Scan(&poolMax).Error; err != nil {
			return fmt.Errorf("failed to read pool maximum: %w", err)
		}
		if err := tx.Model(&model.LegacyShortIDAllocation{}).Select("COALESCE(MAX(id), 0)").Scan(&legacyMax).Error; err != nil {
			return fmt.Errorf("failed to read legacy maximum: %w", err)
		}
		floor := max(poolMax, legacyMax)

		for _, m := range labelledTables {
			var labelMax int64
			if err := tx.Model(m).Select("COALESCE(MAX(short_id), 0)").Scan(&labelMax).Error; err != nil {
				return fmt.Errorf("failed to read inventory label maximum: %w", err)
			}
			floor = max(floor, labelMax)
		}

		counter := model.ShortIDCounter{Name: model.GlobalCounter, Value: floor}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			return fmt.Errorf("failed to create short id counter: %w", err)
		}

		if err := tx.Model(&model.ShortIDCounter{}).
			Where("name = ? AND value < ?", model.GlobalCounter, floor).
			Update("value", floor).Error; err != nil {
			return fmt.Errorf("failed to raise short id counter: %w", err)
		}
		return nil
	})
}
