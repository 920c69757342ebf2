package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// ErrActivityImmutable is returned by the ORM hooks guarding ledger rows.
var ErrActivityImmutable = errors.New("activities are append-only")

// Activity is an immutable ledger entry. Qty is a magnitude; the direction comes
// from EventType.
type Activity struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType        enums.ActivityEventType `gorm:"column:event_type;type:activity_event_type;not null"`
	PartID           *uuid.UUID              `gorm:"column:part_id;type:uuid"`
	Qty              int                     `gorm:"column:qty;not null;default:0"`
	ActorName        string                  `gorm:"column:actor_name;not null"`
	CounterpartyName *string                 `gorm:"column:counterparty_name"`
	Purpose          *string                 `gorm:"column:purpose"`
	Project          *string                 `gorm:"column:project"`
	ProjectID        *uuid.UUID              `gorm:"column:project_id;type:uuid"`
	ProductID        *uuid.UUID              `gorm:"column:product_id;type:uuid"`
	Notes            *string                 `gorm:"column:notes"`
	InvoiceNumber    *string                 `gorm:"column:invoice_number"`
	InvoiceDate      *time.Time              `gorm:"column:invoice_date"`
	Timestamp        *time.Time              `gorm:"column:timestamp"`
	Tags             pq.StringArray          `gorm:"column:tags;type:text[]"`
	CategoryName     *string                 `gorm:"column:category_name"`
	Part             *Part                   `gorm:"foreignKey:PartID"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (Activity) TableName() string { return "activities" }

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Activity) BeforeUpdate(tx *gorm.DB) error {
	return ErrActivityImmutable
}

func (a *Activity) BeforeDelete(tx *gorm.DB) error {
	return ErrActivityImmutable
}
