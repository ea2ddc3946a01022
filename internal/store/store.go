package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Result() Result
	Binding() Binding
	Close() error
}

type DataStore struct {
	db      *gorm.DB
	job     Job
	result  Result
	binding Binding
}

// NewStore keeps everything in the database.
func NewStore(db *gorm.DB) Store {
	return NewStoreWithResults(db, NewResultStore(db))
}

// NewStoreWithResults keeps jobs and bindings in the database and result sets in results.
func NewStoreWithResults(db *gorm.DB, results Result) Store {
	return &DataStore{
		db:      db,
		job:     NewJobStore(db),
		result:  results,
		binding: NewBindingStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Result() Result {
	return s.result
}

func (s *DataStore) Binding() Binding {
	return s.binding
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
