package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/propsuite/property-management-backend/db"
)

// AlivenessWindow is how recent a heartbeat must be for a tenant to be
// considered alive.
const AlivenessWindow = 300 * time.Second

type TenantStatus string

const (
	PendingTenantStatus   TenantStatus = "pending"
	ActiveTenantStatus    TenantStatus = "active"
	SuspendedTenantStatus TenantStatus = "suspended"
	DeletedTenantStatus   TenantStatus = "deleted"
)

func (s TenantStatus) IsValid() bool {
	switch s {
	case PendingTenantStatus, ActiveTenantStatus, SuspendedTenantStatus, DeletedTenantStatus:
		return true
	}
	return false
}

// validStatusTransitions is the tenant lifecycle state machine. "deleted" is
// terminal and has no outgoing transitions.
var validStatusTransitions = map[TenantStatus][]TenantStatus{
	PendingTenantStatus:   {ActiveTenantStatus},
	ActiveTenantStatus:    {SuspendedTenantStatus, DeletedTenantStatus},
	SuspendedTenantStatus: {ActiveTenantStatus, DeletedTenantStatus},
	DeletedTenantStatus:   {},
}

// CanTransitionTo reports whether the lifecycle state machine allows moving
// from s to target.
func (s TenantStatus) CanTransitionTo(target TenantStatus) bool {
	for _, allowed := range validStatusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

var (
	ErrDuplicatedSubdomain = errors.New("duplicated tenant subdomain")
	ErrEmptySubdomain      = errors.New("tenant subdomain cannot be empty")
	ErrInvalidTransition   = errors.New("invalid tenant status transition")
)

type Tenant struct {
	ID        string       `json:"id" db:"id"`
	Subdomain string       `json:"subdomain" db:"subdomain"`
	Name      string       `json:"name" db:"name"`
	APIURL    string       `json:"api_url" db:"api_url"`
	Status    TenantStatus `json:"status" db:"status"`
	IsActive  bool         `json:"is_active" db:"is_active"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
	LastSeen  *time.Time   `json:"last_seen" db:"last_seen"`
	Settings  JSONMap      `json:"settings" db:"settings"`
	Metadata  JSONMap      `json:"metadata" db:"metadata"`
}

// IsAlive reports whether the tenant heartbeated within the aliveness window.
func (t *Tenant) IsAlive(now time.Time) bool {
	return t.LastSeen != nil && now.Sub(*t.LastSeen) < AlivenessWindow
}

type TenantInsert struct {
	ID        string
	Subdomain string
	Name      string
	APIURL    string
	Status    TenantStatus
	IsActive  bool
	Settings  JSONMap
}

type TenantModel struct {
	dbConnectionPool db.DBConnectionPool
}

func NewTenantModel(dbConnectionPool db.DBConnectionPool) *TenantModel {
	return &TenantModel{dbConnectionPool: dbConnectionPool}
}

// Insert persists a new tenant record. It returns ErrDuplicatedSubdomain when
// a non-deleted tenant already holds the subdomain.
func (m *TenantModel) Insert(ctx context.Context, ti TenantInsert) (*Tenant, error) {
	if strings.TrimSpace(ti.Subdomain) == "" {
		return nil, ErrEmptySubdomain
	}
	if ti.ID != "" {
		if err := uuid.Validate(ti.ID); err != nil {
			return nil, fmt.Errorf("validating tenant ID %q: %w", ti.ID, err)
		}
	}
	if ti.Status == "" {
		ti.Status = PendingTenantStatus
	}
	if ti.Settings == nil {
		ti.Settings = JSONMap{}
	}

	const q = `
		INSERT INTO tenants
			(id, subdomain, name, api_url, status, is_active, settings)
		VALUES
			(COALESCE(NULLIF($1, ''), gen_random_uuid()::text)::uuid, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`
	var t Tenant
	err := m.dbConnectionPool.GetContext(ctx, &t, q, ti.ID, ti.Subdomain, ti.Name, ti.APIURL, ti.Status, ti.IsActive, ti.Settings)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "idx_tenants_subdomain_live" {
			return nil, ErrDuplicatedSubdomain
		}
		return nil, fmt.Errorf("inserting tenant %s: %w", ti.Subdomain, err)
	}
	return &t, nil
}

func (m *TenantModel) GetByID(ctx context.Context, id string) (*Tenant, error) {
	const q = `SELECT * FROM tenants WHERE id = $1 AND status != 'deleted'`
	var t Tenant
	err := m.dbConnectionPool.GetContext(ctx, &t, q, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying tenant ID %s: %w", id, err)
	}
	return &t, nil
}

func (m *TenantModel) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	const q = `SELECT * FROM tenants WHERE subdomain = $1 AND status != 'deleted'`
	var t Tenant
	err := m.dbConnectionPool.GetContext(ctx, &t, q, subdomain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying tenant subdomain %s: %w", subdomain, err)
	}
	return &t, nil
}

// GetByIDOrSubdomain resolves the argument as an ID first, then falls back to
// subdomain lookup.
func (m *TenantModel) GetByIDOrSubdomain(ctx context.Context, arg string) (*Tenant, error) {
	const q = `SELECT * FROM tenants WHERE (id::text = $1 OR subdomain = $1) AND status != 'deleted'`
	var t Tenant
	err := m.dbConnectionPool.GetContext(ctx, &t, q, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying tenant by ID or subdomain %s: %w", arg, err)
	}
	return &t, nil
}

func (m *TenantModel) GetAll(ctx context.Context, offset, limit int) ([]Tenant, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
		SELECT * FROM tenants
		WHERE status != 'deleted'
		ORDER BY created_at ASC
		OFFSET $1 LIMIT $2
	`
	tenants := []Tenant{}
	if err := m.dbConnectionPool.SelectContext(ctx, &tenants, q, offset, limit); err != nil {
		return nil, fmt.Errorf("querying all tenants: %w", err)
	}
	return tenants, nil
}

// UpdateStatus transitions the tenant to newStatus, enforcing the lifecycle
// state machine. The is_active flag follows the status.
func (m *TenantModel) UpdateStatus(ctx context.Context, id string, newStatus TenantStatus) (*Tenant, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}

	return db.RunInTransactionWithResult(ctx, m.dbConnectionPool, nil, func(dbTx db.DBTransaction) (*Tenant, error) {
		var current Tenant
		err := dbTx.GetContext(ctx, &current, `SELECT * FROM tenants WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrRecordNotFound
			}
			return nil, fmt.Errorf("locking tenant %s: %w", id, err)
		}

		if !current.Status.CanTransitionTo(newStatus) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, newStatus)
		}

		const q = `
			UPDATE tenants
			SET status = $2, is_active = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		`
		var updated Tenant
		if err = dbTx.GetContext(ctx, &updated, q, id, newStatus, newStatus == ActiveTenantStatus); err != nil {
			return nil, fmt.Errorf("updating tenant %s status to %s: %w", id, newStatus, err)
		}
		return &updated, nil
	})
}

// UpdateSettings merges the given settings into the tenant's settings map.
func (m *TenantModel) UpdateSettings(ctx context.Context, subdomain string, settings JSONMap) (*Tenant, error) {
	if len(settings) == 0 {
		return nil, ErrMissingInput
	}

	const q = `
		UPDATE tenants
		SET settings = settings || $2, updated_at = NOW()
		WHERE subdomain = $1 AND status != 'deleted'
		RETURNING *
	`
	var t Tenant
	err := m.dbConnectionPool.GetContext(ctx, &t, q, subdomain, settings)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("updating settings for tenant %s: %w", subdomain, err)
	}
	return &t, nil
}

// TouchHeartbeat updates last_seen for the subdomain, lazily registering a
// minimal pending record when the subdomain has never been seen before.
func (m *TenantModel) TouchHeartbeat(ctx context.Context, subdomain, apiURL string) (*Tenant, error) {
	if strings.TrimSpace(subdomain) == "" {
		return nil, ErrEmptySubdomain
	}

	const q = `
		INSERT INTO tenants (subdomain, name, api_url, status, is_active, last_seen)
		VALUES ($1, INITCAP($1), $2, 'pending', FALSE, NOW())
		ON CONFLICT (subdomain) WHERE status != 'deleted'
		DO UPDATE SET last_seen = NOW()
		RETURNING *
	`
	var t Tenant
	if err := m.dbConnectionPool.GetContext(ctx, &t, q, subdomain, apiURL); err != nil {
		return nil, fmt.Errorf("touching heartbeat for tenant %s: %w", subdomain, err)
	}
	return &t, nil
}

// Delete hard-deletes the tenant row; the provisioning-log and event rows go
// with it through the ON DELETE CASCADE constraints.
func (m *TenantModel) Delete(ctx context.Context, subdomain string) error {
	const q = `DELETE FROM tenants WHERE subdomain = $1`
	res, err := m.dbConnectionPool.ExecContext(ctx, q, subdomain)
	if err != nil {
		return fmt.Errorf("deleting tenant %s: %w", subdomain, err)
	}
	numRowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
