package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/osa030/tubequeue/internal/domain/queue"
)

// SQLConfig represents SQL store settings.
type SQLConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn" default:"tubequeue.db" validate:"required"`
}

// queueRecord is one row per session key.
type queueRecord struct {
	SessionKey string    `gorm:"column:session_key;primaryKey"`
	Payload    string    `gorm:"column:payload;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name for queue records.
func (queueRecord) TableName() string {
	return "queue_states"
}

// SQL is a Store backed by an SQLite database through gorm.
type SQL struct {
	db *gorm.DB
}

// NewSQL opens the database and migrates the schema.
func NewSQL(cfg SQLConfig) (*SQL, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sql store dsn is required")
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database handle")
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&queueRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "failed to migrate queue_states")
	}

	return &SQL{db: db}, nil
}

// Load returns the state for key, or the default state.
func (s *SQL) Load(ctx context.Context, key string) (queue.State, error) {
	if key == "" {
		return queue.State{}, ErrEmptyKey
	}

	var rec queueRecord
	err := s.db.WithContext(ctx).Where("session_key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return queue.Default(), nil
	}
	if err != nil {
		return queue.State{}, errors.Wrapf(err, "failed to load queue state: key=%s", key)
	}

	return decodeState(key, []byte(rec.Payload)), nil
}

// Save upserts the state for key in a single statement.
func (s *SQL) Save(ctx context.Context, key string, st queue.State) error {
	if key == "" {
		return ErrEmptyKey
	}

	data, err := encodeState(st)
	if err != nil {
		return err
	}

	rec := queueRecord{
		SessionKey: key,
		Payload:    string(data),
		UpdatedAt:  time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return errors.Wrapf(err, "failed to save queue state: key=%s", key)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get database handle")
	}
	return sqlDB.Close()
}

// Ensure SQL implements Store.
var _ Store = (*SQL)(nil)
