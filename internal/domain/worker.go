package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Capabilities granted to API clients.
const (
	ScopeEnrichmentsRead  = "enrichments:read"
	ScopeEnrichmentsWrite = "enrichments:write"
)

// Worker is an authenticated API client. Clients holding jobs:* scopes
// claim pipeline work; clients holding enrichments:* scopes submit media.
type Worker struct {
	ID            uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string                      `gorm:"column:name;not null" json:"name"`
	ClientID      string                      `gorm:"column:client_id;not null;uniqueIndex" json:"client_id"`
	SecretHash    string                      `gorm:"column:secret_hash;not null" json:"-"`
	Scopes        datatypes.JSONSlice[string] `gorm:"column:scopes" json:"scopes"`
	LastSuccessAt *time.Time                  `gorm:"column:last_success_at" json:"last_success_at,omitempty"`
	LastFailureAt *time.Time                  `gorm:"column:last_failure_at" json:"last_failure_at,omitempty"`
	CreatedAt     time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Worker) TableName() string { return "worker" }

func (w *Worker) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

func (w *Worker) HasScope(scope string) bool {
	if w == nil {
		return false
	}
	for _, s := range w.Scopes {
		if strings.EqualFold(strings.TrimSpace(s), scope) {
			return true
		}
	}
	return false
}

// Parameter is a named numeric pipeline setting.
type Parameter struct {
	Name        string    `gorm:"column:name;primaryKey" json:"name"`
	Value       float64   `gorm:"column:value;not null" json:"value"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Parameter) TableName() string { return "parameter" }
