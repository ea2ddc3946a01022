package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

// Result persists the result sets produced by the analysis worker.
type Result interface {
	// Put stores rs under id, replacing whatever was stored there before.
	Put(ctx context.Context, id string, rs model.ResultSet) error
	Get(ctx context.Context, id string) (*model.ResultSet, error)
}

type ResultStore struct {
	db *gorm.DB
}

var _ Result = (*ResultStore)(nil)

func NewResultStore(db *gorm.DB) Result {
	return &ResultStore{db: db}
}

func (s *ResultStore) Put(ctx context.Context, id string, rs model.ResultSet) error {
	row := model.NewResult(id, rs, time.Now().UTC())

	result := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"results_data", "updated_at"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("storing results %s: %w", id, result.Error)
	}

	return nil
}

func (s *ResultStore) Get(ctx context.Context, id string) (*model.ResultSet, error) {
	var row model.Result
	if err := s.getDB(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying results: %w", err)
	}

	rs := row.Data.Data()
	return &rs, nil
}

func (s *ResultStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
