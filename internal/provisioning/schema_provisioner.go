package provisioning

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/propsuite/property-management-backend/db"
)

// SchemaProvisioner manages the per-tenant database schema that isolates a
// tenant's rows from every other tenant.
type SchemaProvisioner interface {
	CreateTenantSchema(ctx context.Context, subdomain string) error
	DropTenantSchema(ctx context.Context, subdomain string) error
	SchemaExists(ctx context.Context, subdomain string) (bool, error)
}

// SchemaNameForSubdomain derives the schema name for a tenant. Hyphens are
// mapped to underscores so the name stays a plain identifier.
func SchemaNameForSubdomain(subdomain string) string {
	return "tenant_" + strings.ReplaceAll(subdomain, "-", "_")
}

type PostgresSchemaProvisioner struct {
	dbConnectionPool db.DBConnectionPool
}

func NewPostgresSchemaProvisioner(dbConnectionPool db.DBConnectionPool) *PostgresSchemaProvisioner {
	return &PostgresSchemaProvisioner{dbConnectionPool: dbConnectionPool}
}

// CreateTenantSchema is idempotent: re-running it against a subdomain whose
// schema already exists is a no-op.
func (p *PostgresSchemaProvisioner) CreateTenantSchema(ctx context.Context, subdomain string) error {
	schemaName := SchemaNameForSubdomain(subdomain)
	log.WithContext(ctx).Infof("creating tenant %s database schema", subdomain)

	_, err := p.dbConnectionPool.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(schemaName)))
	if err != nil {
		return fmt.Errorf("creating schema %s: %w", schemaName, err)
	}
	return nil
}

func (p *PostgresSchemaProvisioner) DropTenantSchema(ctx context.Context, subdomain string) error {
	schemaName := SchemaNameForSubdomain(subdomain)
	log.WithContext(ctx).Infof("dropping tenant %s database schema", subdomain)

	_, err := p.dbConnectionPool.ExecContext(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schemaName)))
	if err != nil {
		return fmt.Errorf("dropping schema %s: %w", schemaName, err)
	}
	return nil
}

func (p *PostgresSchemaProvisioner) SchemaExists(ctx context.Context, subdomain string) (bool, error) {
	const q = "SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)"

	var exists bool
	err := p.dbConnectionPool.GetContext(ctx, &exists, q, SchemaNameForSubdomain(subdomain))
	if err != nil {
		return false, fmt.Errorf("checking schema existence for %s: %w", subdomain, err)
	}
	return exists, nil
}

var _ SchemaProvisioner = (*PostgresSchemaProvisioner)(nil)
