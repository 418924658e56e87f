package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the consistency boundary contract. Aggregates carry a
// version for optimistic locking and buffer domain events until the
// application layer publishes them after a successful save.
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides version and event buffering for embedding
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot creates an aggregate root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent buffers an event for publication after persistence
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the buffered, not yet published events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the buffered events, called once they are handed
// to the event bus
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// TenantAggregateRoot scopes an aggregate to one tenant. Every query and
// mutation in this service is tenant-scoped.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// NewTenantAggregateRoot creates a tenant-scoped aggregate root
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          tenantID,
	}
}
