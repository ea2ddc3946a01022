package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/ngrok/sqlmw"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

const (
	pgsqlDriverName  = "pgx-instrumented"
	sqliteDriverName = "sqlite3-instrumented"
)

var registerDrivers sync.Once

// instrumented drivers report every operation to the db metrics.
func registerInstrumentedDrivers() {
	registerDrivers.Do(func() {
		sql.Register(pgsqlDriverName, sqlmw.Driver(stdlib.GetDefaultDriver(), &metricInterceptor{}))
		sql.Register(sqliteDriverName, sqlmw.Driver(&sqlite3.SQLiteDriver{}, &metricInterceptor{}))
	})
}

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dia gorm.Dialector

	registerInstrumentedDrivers()

	if cfg.Database.Type == "pgsql" {
		dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s",
			cfg.Database.Hostname,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Port,
		)
		if cfg.Database.Name != "" {
			dsn = fmt.Sprintf("%s dbname=%s", dsn, cfg.Database.Name)
		}
		dia = postgres.New(postgres.Config{DriverName: pgsqlDriverName, DSN: dsn})
	} else {
		dia = &sqlite.Dialector{DriverName: sqliteDriverName, DSN: cfg.Database.Name}
	}

	newLogger := logger.New(
		logrus.New(),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			ParameterizedQueries:      true,        // Don't include params in the SQL log
			Colorful:                  false,       // Disable color
		},
	)

	newDB, err := gorm.Open(dia, &gorm.Config{Logger: newLogger, TranslateError: true})
	if err != nil {
		zap.S().Named("gorm").Errorf("failed to connect database: %v", err)
		return nil, err
	}

	sqlDB, err := newDB.DB()
	if err != nil {
		zap.S().Named("gorm").Errorf("failed to configure connections: %v", err)
		return nil, err
	}

	if cfg.Database.Type == "pgsql" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)

		var minorVersion string
		if result := newDB.Raw("SELECT version()").Scan(&minorVersion); result.Error != nil {
			zap.S().Named("gorm").Infoln(result.Error.Error())
			return nil, result.Error
		}

		zap.S().Named("gorm").Infof("PostgreSQL information: '%s'", minorVersion)
	} else {
		// sqlite serializes writers anyway; a single connection avoids SQLITE_BUSY between pool members.
		sqlDB.SetMaxOpenConns(1)
	}

	return newDB, nil
}

// AutoMigrate creates the tables straight from the models. Used by tests and by sqlite
// deployments that run without the sql migration folder.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Job{}, &model.Result{}, &model.SessionBinding{})
}
