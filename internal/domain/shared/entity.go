package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the minimal surface every persisted domain object exposes
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity carries identity and timestamps for embedding in entities
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity returns a BaseEntity with a fresh ID and both timestamps
// set to now
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// Touch records a mutation on the entity
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}
