package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity actions written by the service.
const (
	ActionAccessDateCorrected = "access_date.corrected"
	ActionStepCompleted       = "step.completed"
)

// ActivityLog captures auditable writes performed by the service or on behalf of a user.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
