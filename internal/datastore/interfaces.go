package datastore

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/agrovista/cropwatch-go/internal/conf"
	"github.com/agrovista/cropwatch-go/internal/logging"
)

var dbLogger *slog.Logger

func init() {
	var err error
	dbLogger, _, err = logging.NewFileLogger("logs/datastore.log", "datastore", slog.LevelInfo, nil)
	if err != nil || dbLogger == nil {
		dbLogger = slog.Default().With("service", "datastore")
	}
}

// Interface is the append-only persistence contract used by the pipeline.
type Interface interface {
	Open() error
	Close() error
	SaveIndexGrid(record *IndexGridRecord) error
	SaveDetection(record *DetectionRecord) error
	SaveRecommendation(record *RecommendationRecord) error
	SaveAlert(record *AlertRecord) error
}

// DataStore carries the shared gorm handle and save implementations; the
// backend-specific stores embed it and provide Open/Close.
type DataStore struct {
	DB *gorm.DB
}

// New selects the configured backend.
func New(settings *conf.DatastoreSettings) (Interface, error) {
	switch settings.Type {
	case "sqlite":
		return &SQLiteStore{Settings: settings}, nil
	case "mysql":
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, fmt.Errorf("unsupported datastore type: %s", settings.Type)
	}
}

// SaveIndexGrid implements Interface
func (ds *DataStore) SaveIndexGrid(record *IndexGridRecord) error {
	return ds.create(record, "index grid")
}

// SaveDetection implements Interface
func (ds *DataStore) SaveDetection(record *DetectionRecord) error {
	return ds.create(record, "detection")
}

// SaveRecommendation implements Interface
func (ds *DataStore) SaveRecommendation(record *RecommendationRecord) error {
	return ds.create(record, "recommendation")
}

// SaveAlert implements Interface
func (ds *DataStore) SaveAlert(record *AlertRecord) error {
	return ds.create(record, "alert")
}

func (ds *DataStore) create(record any, kind string) error {
	if ds.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	if err := ds.DB.Create(record).Error; err != nil {
		dbLogger.Error("failed to save record", "kind", kind, "error", err)
		return fmt.Errorf("failed to save %s record: %w", kind, err)
	}
	return nil
}

// performAutoMigration migrates the result tables on open.
func performAutoMigration(db *gorm.DB, backend string) error {
	if err := db.AutoMigrate(
		&IndexGridRecord{},
		&DetectionRecord{},
		&RecommendationRecord{},
		&AlertRecord{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", backend, err)
	}
	dbLogger.Info("database ready", "backend", backend)
	return nil
}

// createGormLogger keeps gorm quiet except for slow queries and errors.
func createGormLogger() gormlogger.Interface {
	return gormlogger.New(
		slog.NewLogLogger(dbLogger.Handler(), slog.LevelWarn),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}
