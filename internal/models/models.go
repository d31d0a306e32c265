// package models defines the data model for the lyrebird player
package models

import "time"

// Model is a saved library row. Rows are soft deleted and keep their insertion sequence.
type Model interface {
	ID() string
	Sequence() int
	CreatedAt() time.Time
	UpdatedAt() time.Time
	IsDeleted() bool
	Validate() error
}

// Repository is the storage contract for library rows.
//
// Get and List only see live rows. Delete marks a row removed; a second Delete of the same id fails.
// List criteria keys are repository specific ("source", "name" for stubs).
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
