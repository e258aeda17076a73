package store

import (
	"gorm.io/gorm"
)

// Store is the durable record store for users, tasks and messages.
// Missing records are reported as apperr.ErrNotFound.
type Store struct {
	db *gorm.DB
}

// New creates a Store backed by db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}
