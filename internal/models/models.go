// package models defines the AniList list data and the persisted run history
package models

import (
	"time"
)

// Model is a persisted record with soft delete.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	DeletedAt() *time.Time // nil while the record is live
	Validate() error
}

// Repository is the CRUD surface of a history table.
//
// Get and List never return soft-deleted records; Delete soft-deletes.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
