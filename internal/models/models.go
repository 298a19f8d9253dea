// package models defines the data model for the download history
package models

import (
	"time"
)

// Model is a record persisted in the history database.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	// Validate rejects records that must not be written.
	Validate() error
}

// Repository is CRUD access to one kind of [Model].
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	// List returns the records matching criteria, newest first. Supported keys are repository specific.
	List(criteria map[string]any) ([]T, error)
}
