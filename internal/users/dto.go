package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partstrack-backend/pkg/db/models"
)

// UserDTO is the API representation of a team member.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromModel maps the persisted user.
func FromModel(u models.AppUser) UserDTO {
	return UserDTO{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}
