package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partstrack-backend/pkg/enums"
)

// Project owns products and a team of assignees.
type Project struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string              `gorm:"column:name;not null"`
	Description          *string             `gorm:"column:description"`
	Status               enums.ProjectStatus `gorm:"column:status;type:project_status;not null;default:'in-progress'"`
	DispatchedAt         *time.Time          `gorm:"column:dispatched_at"`
	DispatchDatetime     *time.Time          `gorm:"column:dispatch_datetime"`
	DispatchFromLocation *string             `gorm:"column:dispatch_from_location"`
	DispatchToLocation   *string             `gorm:"column:dispatch_to_location"`
	ReceivingPersonName  *string             `gorm:"column:receiving_person_name"`
	CancelledAt          *time.Time          `gorm:"column:cancelled_at"`
	IsActive             bool                `gorm:"column:is_active;not null;default:true"`
	Products             []Product           `gorm:"foreignKey:ProjectID"`
	Assignees            []ProjectAssignee   `gorm:"foreignKey:ProjectID"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProjectAssignee links a user to a project team.
type ProjectAssignee struct {
	ProjectID uuid.UUID `gorm:"column:project_id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	User      *AppUser  `gorm:"foreignKey:UserID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ProjectAssignee) TableName() string { return "project_assignees" }
