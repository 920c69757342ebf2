package payloads

import (
	"github.com/google/uuid"
)

// ActivityRecordedEvent mirrors one appended ledger row. Delta carries the
// signed effect on availability.
type ActivityRecordedEvent struct {
	ActivityID uuid.UUID  `json:"activityId"`
	EventType  string     `json:"eventType"`
	PartID     *uuid.UUID `json:"partId,omitempty"`
	Qty        int        `json:"qty"`
	Delta      int        `json:"delta"`
	ProjectID  *uuid.UUID `json:"projectId,omitempty"`
	ProductID  *uuid.UUID `json:"productId,omitempty"`
	ActorName  string     `json:"actorName"`
	Tags       []string   `json:"tags,omitempty"`
}

// PartQuantity is one part/quantity pair carried by product events.
type PartQuantity struct {
	PartID   uuid.UUID `json:"partId"`
	Quantity int       `json:"quantity"`
}

// ProductDeletedEvent is emitted after a product and its allocations are removed.
type ProductDeletedEvent struct {
	ProductID uuid.UUID      `json:"productId"`
	ProjectID uuid.UUID      `json:"projectId"`
	Name      string         `json:"name"`
	Returned  []PartQuantity `json:"returned"`
}

// TemplateAppliedEvent is emitted when a product is stamped out from a template.
type TemplateAppliedEvent struct {
	ProductID  uuid.UUID      `json:"productId"`
	ProjectID  uuid.UUID      `json:"projectId"`
	TemplateID uuid.UUID      `json:"templateId"`
	Allocated  []PartQuantity `json:"allocated"`
}

// BalanceDriftRepairedEvent is emitted by reconciliation when a stored balance
// disagreed with ledger replay.
type BalanceDriftRepairedEvent struct {
	PartID            uuid.UUID `json:"partId"`
	StoredAvailable   int       `json:"storedAvailable"`
	ReplayedAvailable int       `json:"replayedAvailable"`
}
