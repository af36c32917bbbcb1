package data

import (
	"context"
	"fmt"
	"time"

	"github.com/propsuite/property-management-backend/db"
)

type TenantEventType string

const (
	ActivationEvent   TenantEventType = "activation"
	DeactivationEvent TenantEventType = "deactivation"
	HeartbeatEvent    TenantEventType = "heartbeat"
	InfoEvent         TenantEventType = "info"
	ErrorEvent        TenantEventType = "error"
)

// TenantEvent is the lightweight operational audit stream, distinct from the
// provisioning log.
type TenantEvent struct {
	ID        string          `json:"id" db:"id"`
	TenantID  string          `json:"tenant_id" db:"tenant_id"`
	Type      TenantEventType `json:"type" db:"type"`
	Message   string          `json:"message" db:"message"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	Metadata  JSONMap         `json:"metadata" db:"metadata"`
}

type TenantEventModel struct {
	dbConnectionPool db.DBConnectionPool
}

func NewTenantEventModel(dbConnectionPool db.DBConnectionPool) *TenantEventModel {
	return &TenantEventModel{dbConnectionPool: dbConnectionPool}
}

func (m *TenantEventModel) Insert(ctx context.Context, tenantID string, eventType TenantEventType, message string, metadata JSONMap) (*TenantEvent, error) {
	if metadata == nil {
		metadata = JSONMap{}
	}
	const q = `
		INSERT INTO tenant_events (tenant_id, type, message, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`
	var event TenantEvent
	if err := m.dbConnectionPool.GetContext(ctx, &event, q, tenantID, eventType, message, metadata); err != nil {
		return nil, fmt.Errorf("inserting tenant event %s for tenant %s: %w", eventType, tenantID, err)
	}
	return &event, nil
}

func (m *TenantEventModel) ListForTenant(ctx context.Context, tenantID string, limit int) ([]TenantEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT * FROM tenant_events
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	events := []TenantEvent{}
	if err := m.dbConnectionPool.SelectContext(ctx, &events, q, tenantID, limit); err != nil {
		return nil, fmt.Errorf("listing events for tenant %s: %w", tenantID, err)
	}
	return events, nil
}
