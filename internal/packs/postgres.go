package packs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/buzzer-backend/internal/common/clock"
	"github.com/DoyleJ11/buzzer-backend/internal/content"
)

// packRecord is the packs table row.
type packRecord struct {
	ID        string         `gorm:"primaryKey;size:36"`
	Name      string         `gorm:"size:128;not null"`
	Rounds    int            `gorm:"not null;default:0"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

func (packRecord) TableName() string { return "packs" }

func (rec *packRecord) toPack() (*Pack, error) {
	data, err := content.Parse(rec.Document)
	if err != nil {
		return nil, fmt.Errorf("stored pack %s: %w", rec.ID, err)
	}
	return &Pack{ID: rec.ID, Name: rec.Name, GameData: data, CreatedAt: rec.CreatedAt.UTC()}, nil
}

// PostgresConfig holds configuration for the Postgres pack store
type PostgresConfig struct {
	DB    *gorm.DB
	Clock clock.Clock
}

type postgresStore struct {
	db    *gorm.DB
	clock clock.Clock
}

// OpenPostgres connects gorm to dsn through the pgx-based postgres driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return db, nil
}

// NewPostgres creates a gorm-backed pack store and migrates its table.
func NewPostgres(cfg *PostgresConfig) (Store, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.DB == nil {
		return nil, errors.New("db cannot be nil")
	}
	if err := cfg.DB.AutoMigrate(&packRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate packs table: %w", err)
	}

	clk := cfg.Clock
	if clk == nil {
		clk = &clock.DefaultClock{}
	}
	return &postgresStore{db: cfg.DB, clock: clk}, nil
}

func (s *postgresStore) Save(ctx context.Context, input *SaveInput) (*Pack, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(input.GameData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pack: %w", err)
	}

	rec := packRecord{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Rounds:    len(input.GameData.Rounds),
		Document:  datatypes.JSON(doc),
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to save pack: %w", err)
	}
	return &Pack{ID: rec.ID, Name: rec.Name, GameData: input.GameData, CreatedAt: rec.CreatedAt}, nil
}

func (s *postgresStore) Get(ctx context.Context, input *GetInput) (*Pack, error) {
	if input == nil || input.ID == "" {
		return nil, errors.New("input and pack ID cannot be empty")
	}

	var rec packRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", input.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pack: %w", err)
	}
	return rec.toPack()
}

func (s *postgresStore) List(ctx context.Context, input *ListInput) (*ListOutput, error) {
	var recs []packRecord
	err := s.db.WithContext(ctx).
		Select("id", "name", "rounds", "created_at").
		Order("created_at desc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list packs: %w", err)
	}

	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Summary{ID: rec.ID, Name: rec.Name, Rounds: rec.Rounds, CreatedAt: rec.CreatedAt.UTC()})
	}
	return &ListOutput{Packs: out}, nil
}

func (s *postgresStore) Delete(ctx context.Context, input *DeleteInput) error {
	if input == nil || input.ID == "" {
		return errors.New("input and pack ID cannot be empty")
	}

	res := s.db.WithContext(ctx).Delete(&packRecord{}, "id = ?", input.ID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete pack: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPackNotFound
	}
	return nil
}
