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

// Binding associates a client session with the result set it displays.
type Binding interface {
	// BindIfAbsent binds the session unless it is already bound. The first binding wins and
	// later calls leave it untouched. It reports whether this call created the binding.
	BindIfAbsent(ctx context.Context, sessionID, resultsID string) (bool, error)
	Get(ctx context.Context, sessionID string) (string, error)
	Clear(ctx context.Context, sessionID string) error
}

type BindingStore struct {
	db *gorm.DB
}

var _ Binding = (*BindingStore)(nil)

func NewBindingStore(db *gorm.DB) Binding {
	return &BindingStore{db: db}
}

func (s *BindingStore) BindIfAbsent(ctx context.Context, sessionID, resultsID string) (bool, error) {
	b := model.SessionBinding{
		SessionID: sessionID,
		ResultsID: resultsID,
		CreatedAt: time.Now().UTC(),
	}

	result := s.getDB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&b)
	if result.Error != nil {
		return false, fmt.Errorf("binding session: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (s *BindingStore) Get(ctx context.Context, sessionID string) (string, error) {
	var b model.SessionBinding
	if err := s.getDB(ctx).First(&b, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrRecordNotFound
		}
		return "", fmt.Errorf("querying session binding: %w", err)
	}
	return b.ResultsID, nil
}

func (s *BindingStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.getDB(ctx).Delete(&model.SessionBinding{}, "session_id = ?", sessionID).Error; err != nil {
		return fmt.Errorf("clearing session binding: %w", err)
	}
	return nil
}

func (s *BindingStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
