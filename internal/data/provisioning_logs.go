package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/propsuite/property-management-backend/db"
)

type ProvisioningAction string

const (
	CreateAction   ProvisioningAction = "create"
	UpdateAction   ProvisioningAction = "update"
	DeleteAction   ProvisioningAction = "delete"
	SuspendAction  ProvisioningAction = "suspend"
	ActivateAction ProvisioningAction = "activate"
)

type ProvisioningStatus string

const (
	PendingProvisioningStatus    ProvisioningStatus = "pending"
	InProgressProvisioningStatus ProvisioningStatus = "in_progress"
	CompletedProvisioningStatus  ProvisioningStatus = "completed"
	FailedProvisioningStatus     ProvisioningStatus = "failed"
)

// ProvisioningLog is one append-only row per lifecycle action invocation. It
// is never mutated after reaching a terminal status.
type ProvisioningLog struct {
	ID           string             `json:"id" db:"id"`
	TenantID     *string            `json:"tenant_id" db:"tenant_id"`
	Subdomain    string             `json:"subdomain" db:"subdomain"`
	Action       ProvisioningAction `json:"action" db:"action"`
	Status       ProvisioningStatus `json:"status" db:"status"`
	StartedAt    time.Time          `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time         `json:"completed_at" db:"completed_at"`
	ErrorMessage *string            `json:"error_message" db:"error_message"`
	StepMetadata JSONMap            `json:"step_metadata" db:"step_metadata"`
}

type ProvisioningLogModel struct {
	dbConnectionPool db.DBConnectionPool
}

func NewProvisioningLogModel(dbConnectionPool db.DBConnectionPool) *ProvisioningLogModel {
	return &ProvisioningLogModel{dbConnectionPool: dbConnectionPool}
}

// Insert opens a new provisioning-log entry in pending state.
func (m *ProvisioningLogModel) Insert(ctx context.Context, subdomain string, action ProvisioningAction) (*ProvisioningLog, error) {
	const q = `
		INSERT INTO tenant_provisioning_log (subdomain, action, status)
		VALUES ($1, $2, 'pending')
		RETURNING *
	`
	var entry ProvisioningLog
	if err := m.dbConnectionPool.GetContext(ctx, &entry, q, subdomain, action); err != nil {
		return nil, fmt.Errorf("inserting provisioning log for %s/%s: %w", subdomain, action, err)
	}
	return &entry, nil
}

// Complete closes the entry as completed, binding it to the tenant row and
// recording which soft-fail steps succeeded.
func (m *ProvisioningLogModel) Complete(ctx context.Context, id string, tenantID *string, stepMetadata JSONMap) error {
	const q = `
		UPDATE tenant_provisioning_log
		SET status = 'completed', completed_at = NOW(), tenant_id = $2, step_metadata = $3
		WHERE id = $1
	`
	if stepMetadata == nil {
		stepMetadata = JSONMap{}
	}
	res, err := m.dbConnectionPool.ExecContext(ctx, q, id, tenantID, stepMetadata)
	if err != nil {
		return fmt.Errorf("completing provisioning log %s: %w", id, err)
	}
	return ensureSingleRow(res)
}

// Fail closes the entry as failed with the error message.
func (m *ProvisioningLogModel) Fail(ctx context.Context, id string, errMessage string) error {
	const q = `
		UPDATE tenant_provisioning_log
		SET status = 'failed', completed_at = NOW(), error_message = $2
		WHERE id = $1
	`
	res, err := m.dbConnectionPool.ExecContext(ctx, q, id, errMessage)
	if err != nil {
		return fmt.Errorf("failing provisioning log %s: %w", id, err)
	}
	return ensureSingleRow(res)
}

// GetLatestForSubdomain returns the most recently started entry for the
// subdomain, or ErrRecordNotFound.
func (m *ProvisioningLogModel) GetLatestForSubdomain(ctx context.Context, subdomain string) (*ProvisioningLog, error) {
	const q = `
		SELECT * FROM tenant_provisioning_log
		WHERE subdomain = $1
		ORDER BY started_at DESC
		LIMIT 1
	`
	var entry ProvisioningLog
	err := m.dbConnectionPool.GetContext(ctx, &entry, q, subdomain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying latest provisioning log for %s: %w", subdomain, err)
	}
	return &entry, nil
}

func ensureSingleRow(res sql.Result) error {
	numRowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected != 1 {
		return ErrMismatchNumRowsAffected
	}
	return nil
}
