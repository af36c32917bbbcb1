package data

import (
	"context"
)

// TenantRegistry is the surface of the tenant registry consumed by the
// provisioning orchestrator and the request middleware.
type TenantRegistry interface {
	Insert(ctx context.Context, ti TenantInsert) (*Tenant, error)
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	GetByIDOrSubdomain(ctx context.Context, arg string) (*Tenant, error)
	GetAll(ctx context.Context, offset, limit int) ([]Tenant, error)
	UpdateStatus(ctx context.Context, id string, newStatus TenantStatus) (*Tenant, error)
	UpdateSettings(ctx context.Context, subdomain string, settings JSONMap) (*Tenant, error)
	TouchHeartbeat(ctx context.Context, subdomain, apiURL string) (*Tenant, error)
	Delete(ctx context.Context, subdomain string) error
}

var _ TenantRegistry = (*TenantModel)(nil)

// ProvisioningLogRegistry is the append-only audit surface owned by the
// orchestrator.
type ProvisioningLogRegistry interface {
	Insert(ctx context.Context, subdomain string, action ProvisioningAction) (*ProvisioningLog, error)
	Complete(ctx context.Context, id string, tenantID *string, stepMetadata JSONMap) error
	Fail(ctx context.Context, id string, errMessage string) error
	GetLatestForSubdomain(ctx context.Context, subdomain string) (*ProvisioningLog, error)
}

var _ ProvisioningLogRegistry = (*ProvisioningLogModel)(nil)

// TenantEventRegistry records the lightweight operational event stream.
type TenantEventRegistry interface {
	Insert(ctx context.Context, tenantID string, eventType TenantEventType, message string, metadata JSONMap) (*TenantEvent, error)
	ListForTenant(ctx context.Context, tenantID string, limit int) ([]TenantEvent, error)
}

var _ TenantEventRegistry = (*TenantEventModel)(nil)
