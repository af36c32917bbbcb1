package provisioning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/propsuite/property-management-backend/internal/cert"
	"github.com/propsuite/property-management-backend/internal/crashtracker"
	"github.com/propsuite/property-management-backend/internal/data"
	"github.com/propsuite/property-management-backend/internal/dns"
	"github.com/propsuite/property-management-backend/internal/monitor"
	"github.com/propsuite/property-management-backend/internal/utils"
)

var (
	ErrTenantCreationFailed   = errors.New("tenant creation failed")
	ErrTenantSchemaFailed     = errors.New("database schema creation for tenant failed")
	ErrTenantDeletionFailed   = errors.New("tenant deletion failed")
	ErrUpdateTenantFailed     = errors.New("tenant update failed")
	ErrProvisioningInProgress = errors.New("provisioning already in progress for this subdomain")
	ErrSeederNotConfigured    = errors.New("admin seeder is not configured")
)

// Step metadata keys recorded on the provisioning log.
const (
	stepSchemaCreated = "schema_created"
	stepDNSCreated    = "dns_created"
	stepCertIssued    = "cert_issued"
	stepAdminSeeded   = "admin_seeded"
	stepCertRevoked   = "cert_revoked"
	stepDNSDeleted    = "dns_deleted"
	stepSchemaDropped = "schema_dropped"
)

// ManagerInterface is the surface of the provisioning manager consumed by the
// HTTP layer.
type ManagerInterface interface {
	ProvisionNewTenant(ctx context.Context, req ProvisionTenantRequest) (*data.Tenant, error)
	DeprovisionTenant(ctx context.Context, idOrSubdomain string) error
	SuspendTenant(ctx context.Context, idOrSubdomain string) (*data.Tenant, error)
	ActivateTenant(ctx context.Context, idOrSubdomain string) (*data.Tenant, error)
	UpdateTenantSettings(ctx context.Context, subdomain string, settings data.JSONMap) (*data.Tenant, error)
	GetTenantStatus(ctx context.Context, idOrSubdomain string) (*TenantStatusResponse, error)
}

// Manager orchestrates the tenant lifecycle: provisioning, suspension,
// reactivation, and deprovisioning. Schema creation is the only fatal step of
// a provisioning run; DNS, certificate, and admin seeding failures leave the
// tenant active and are recorded on the provisioning log for later healing.
type Manager struct {
	tenants            data.TenantRegistry
	provisioningLogs   data.ProvisioningLogRegistry
	tenantEvents       data.TenantEventRegistry
	schemaProvisioner  SchemaProvisioner
	dnsProvider        dns.Provider
	certProvider       cert.Provider
	adminSeeder        AdminSeeder
	tracker            *monitor.PerformanceTracker
	crashTrackerClient crashtracker.CrashTrackerClient
	mainDomain         string
	serverIP           string

	muInFlight sync.Mutex
	inFlight   map[string]struct{}
}

var _ ManagerInterface = (*Manager)(nil)

type ManagerOptions struct {
	Tenants            data.TenantRegistry
	ProvisioningLogs   data.ProvisioningLogRegistry
	TenantEvents       data.TenantEventRegistry
	SchemaProvisioner  SchemaProvisioner
	DNSProvider        dns.Provider
	CertProvider       cert.Provider
	AdminSeeder        AdminSeeder
	Tracker            *monitor.PerformanceTracker
	CrashTrackerClient crashtracker.CrashTrackerClient
	MainDomain         string
	ServerIP           string
}

func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Tenants == nil {
		return nil, fmt.Errorf("tenant registry cannot be nil")
	}
	if opts.ProvisioningLogs == nil {
		return nil, fmt.Errorf("provisioning log registry cannot be nil")
	}
	if opts.TenantEvents == nil {
		return nil, fmt.Errorf("tenant event registry cannot be nil")
	}
	if opts.SchemaProvisioner == nil {
		return nil, fmt.Errorf("schema provisioner cannot be nil")
	}
	if opts.DNSProvider == nil {
		return nil, fmt.Errorf("dns provider cannot be nil")
	}
	if opts.CertProvider == nil {
		return nil, fmt.Errorf("certificate provider cannot be nil")
	}
	if opts.AdminSeeder == nil {
		return nil, fmt.Errorf("admin seeder cannot be nil")
	}
	if opts.Tracker == nil {
		opts.Tracker = monitor.NewPerformanceTracker()
	}
	if opts.CrashTrackerClient == nil {
		var err error
		opts.CrashTrackerClient, err = crashtracker.NewDryRunClient()
		if err != nil {
			return nil, fmt.Errorf("creating dry run crash tracker client: %w", err)
		}
	}
	if err := utils.ValidateDNSName(opts.MainDomain); err != nil {
		return nil, fmt.Errorf("validating main domain: %w", err)
	}

	return &Manager{
		tenants:            opts.Tenants,
		provisioningLogs:   opts.ProvisioningLogs,
		tenantEvents:       opts.TenantEvents,
		schemaProvisioner:  opts.SchemaProvisioner,
		dnsProvider:        opts.DNSProvider,
		certProvider:       opts.CertProvider,
		adminSeeder:        opts.AdminSeeder,
		tracker:            opts.Tracker,
		crashTrackerClient: opts.CrashTrackerClient,
		mainDomain:         opts.MainDomain,
		serverIP:           opts.ServerIP,
		inFlight:           map[string]struct{}{},
	}, nil
}

// ProvisionTenantRequest carries the caller-supplied attributes of a new
// tenant.
type ProvisionTenantRequest struct {
	Subdomain string
	Name      string
	Settings  data.JSONMap
}

// tryAcquire registers the subdomain as in flight. Concurrent provisioning of
// distinct subdomains proceeds in parallel; a second run for the same
// subdomain is rejected instead of queued.
func (m *Manager) tryAcquire(subdomain string) bool {
	m.muInFlight.Lock()
	defer m.muInFlight.Unlock()
	if _, busy := m.inFlight[subdomain]; busy {
		return false
	}
	m.inFlight[subdomain] = struct{}{}
	return true
}

func (m *Manager) release(subdomain string) {
	m.muInFlight.Lock()
	defer m.muInFlight.Unlock()
	delete(m.inFlight, subdomain)
}

// ProvisionNewTenant runs the full provisioning pipeline for a subdomain. The
// tenant record is only persisted once the schema step has succeeded, so a
// failed run never leaves a tenant row behind.
func (m *Manager) ProvisionNewTenant(ctx context.Context, req ProvisionTenantRequest) (*data.Tenant, error) {
	subdomain := utils.TrimAndLower(req.Subdomain)
	if err := utils.ValidateSubdomain(subdomain); err != nil {
		return nil, fmt.Errorf("validating subdomain: %w", err)
	}

	if !m.tryAcquire(subdomain) {
		return nil, ErrProvisioningInProgress
	}
	defer m.release(subdomain)

	_, err := m.tenants.GetBySubdomain(ctx, subdomain)
	if err == nil {
		return nil, data.ErrDuplicatedSubdomain
	}
	if !errors.Is(err, data.ErrRecordNotFound) {
		return nil, fmt.Errorf("checking for existing tenant %s: %w", subdomain, err)
	}

	log.WithContext(ctx).Infof("provisioning tenant %s", subdomain)
	m.tracker.StartTracking(subdomain)

	plog, err := m.provisioningLogs.Insert(ctx, subdomain, data.CreateAction)
	if err != nil {
		err = fmt.Errorf("inserting provisioning log for %s: %w", subdomain, err)
		m.tracker.Complete(subdomain, false, err)
		return nil, err
	}

	stepMetadata := data.JSONMap{}

	// Schema creation is the fatal step. Nothing is persisted when it fails.
	if schemaErr := m.runStep(ctx, subdomain, "schema_provisioning", func() error {
		return m.schemaProvisioner.CreateTenantSchema(ctx, subdomain)
	}); schemaErr != nil {
		m.failProvisioning(ctx, plog.ID, subdomain, schemaErr)
		return nil, fmt.Errorf("%w: %w", ErrTenantSchemaFailed, schemaErr)
	}
	stepMetadata[stepSchemaCreated] = true

	apiURL := fmt.Sprintf("https://%s.%s", subdomain, m.mainDomain)
	tnt, err := m.tenants.Insert(ctx, data.TenantInsert{
		Subdomain: subdomain,
		Name:      req.Name,
		APIURL:    apiURL,
		Status:    data.PendingTenantStatus,
		Settings:  req.Settings,
	})
	if err != nil {
		if dropErr := m.schemaProvisioner.DropTenantSchema(ctx, subdomain); dropErr != nil {
			log.WithContext(ctx).Errorf("rolling back schema for %s: %v", subdomain, dropErr)
		}
		m.failProvisioning(ctx, plog.ID, subdomain, err)
		return nil, fmt.Errorf("%w: inserting tenant %s: %w", ErrTenantCreationFailed, subdomain, err)
	}

	// The remaining steps are non-fatal: their outcome lands in the step
	// metadata and the tenant goes live either way.
	fqdn := subdomain + "." + m.mainDomain
	stepMetadata[stepDNSCreated] = m.runSoftStep(ctx, subdomain, "dns_record", func() error {
		_, ensureErr := m.dnsProvider.Ensure(ctx, fqdn, m.serverIP)
		return ensureErr
	})
	stepMetadata[stepCertIssued] = m.runSoftStep(ctx, subdomain, "tls_certificate", func() error {
		return m.certProvider.Issue(ctx, fqdn)
	})
	stepMetadata[stepAdminSeeded] = m.runSoftStep(ctx, subdomain, "admin_seeding", func() error {
		return m.adminSeeder.SeedAdmin(ctx, subdomain, apiURL)
	})

	tnt, err = m.tenants.UpdateStatus(ctx, tnt.ID, data.ActiveTenantStatus)
	if err != nil {
		m.failProvisioning(ctx, plog.ID, subdomain, err)
		return nil, fmt.Errorf("%w: activating tenant %s: %w", ErrUpdateTenantFailed, subdomain, err)
	}

	if completeErr := m.provisioningLogs.Complete(ctx, plog.ID, &tnt.ID, stepMetadata); completeErr != nil {
		log.WithContext(ctx).Errorf("completing provisioning log for %s: %v", subdomain, completeErr)
	}
	if _, eventErr := m.tenantEvents.Insert(ctx, tnt.ID, data.ActivationEvent, "tenant provisioned", stepMetadata); eventErr != nil {
		log.WithContext(ctx).Errorf("recording activation event for %s: %v", subdomain, eventErr)
	}

	m.tracker.Complete(subdomain, true, nil)
	log.WithContext(ctx).Infof("tenant %s provisioned at %s", subdomain, apiURL)
	return tnt, nil
}

func (m *Manager) failProvisioning(ctx context.Context, plogID, subdomain string, cause error) {
	if failErr := m.provisioningLogs.Fail(ctx, plogID, cause.Error()); failErr != nil {
		log.WithContext(ctx).Errorf("marking provisioning log failed for %s: %v", subdomain, failErr)
	}
	m.tracker.Complete(subdomain, false, cause)
	m.crashTrackerClient.LogAndReportErrors(ctx, cause, fmt.Sprintf("provisioning tenant %s", subdomain))
}

// runStep executes fn and records its timing on the tracker.
func (m *Manager) runStep(ctx context.Context, subdomain, step string, fn func() error) error {
	start := time.Now()
	err := fn()
	m.tracker.RecordStep(subdomain, step, time.Since(start), err)
	return err
}

// runSoftStep executes a non-fatal step and reports whether it succeeded.
// Unconfigured providers are skipped quietly; real failures are logged.
func (m *Manager) runSoftStep(ctx context.Context, subdomain, step string, fn func() error) bool {
	err := m.runStep(ctx, subdomain, step, fn)
	if err == nil {
		return true
	}
	if errors.Is(err, dns.ErrNotConfigured) || errors.Is(err, cert.ErrNotConfigured) || errors.Is(err, ErrSeederNotConfigured) {
		log.WithContext(ctx).Warnf("skipping %s for tenant %s: %v", step, subdomain, err)
		return false
	}
	log.WithContext(ctx).Errorf("%s failed for tenant %s, continuing: %v", step, subdomain, err)
	return false
}

// DeprovisionTenant tears the tenant down: certificate and DNS record
// best-effort, then the storage namespace, then the tenant row itself along
// with its cascade-owned rows. The schema drop is fatal; when it fails the
// row keeps its terminal status and the deletion can be retried. The
// provisioning log entry is keyed by subdomain, so the teardown record
// survives the row's removal.
func (m *Manager) DeprovisionTenant(ctx context.Context, idOrSubdomain string) error {
	tnt, err := m.tenants.GetByIDOrSubdomain(ctx, idOrSubdomain)
	if err != nil {
		return fmt.Errorf("getting tenant %s: %w", idOrSubdomain, err)
	}

	if !m.tryAcquire(tnt.Subdomain) {
		return ErrProvisioningInProgress
	}
	defer m.release(tnt.Subdomain)

	subdomain := tnt.Subdomain
	m.tracker.StartTracking(subdomain)

	plog, err := m.provisioningLogs.Insert(ctx, subdomain, data.DeleteAction)
	if err != nil {
		err = fmt.Errorf("inserting provisioning log for %s: %w", subdomain, err)
		m.tracker.Complete(subdomain, false, err)
		return err
	}

	tnt, err = m.tenants.UpdateStatus(ctx, tnt.ID, data.DeletedTenantStatus)
	if err != nil {
		if failErr := m.provisioningLogs.Fail(ctx, plog.ID, err.Error()); failErr != nil {
			log.WithContext(ctx).Errorf("marking provisioning log failed for %s: %v", subdomain, failErr)
		}
		m.tracker.Complete(subdomain, false, err)
		return fmt.Errorf("marking tenant %s deleted: %w", subdomain, err)
	}

	fqdn := subdomain + "." + m.mainDomain
	stepMetadata := data.JSONMap{}
	stepMetadata[stepCertRevoked] = m.runSoftStep(ctx, subdomain, "tls_revocation", func() error {
		return m.certProvider.Revoke(ctx, fqdn)
	})
	stepMetadata[stepDNSDeleted] = m.deleteDNSRecord(ctx, subdomain)

	if dropErr := m.runStep(ctx, subdomain, "schema_teardown", func() error {
		return m.schemaProvisioner.DropTenantSchema(ctx, subdomain)
	}); dropErr != nil {
		if failErr := m.provisioningLogs.Fail(ctx, plog.ID, dropErr.Error()); failErr != nil {
			log.WithContext(ctx).Errorf("marking provisioning log failed for %s: %v", subdomain, failErr)
		}
		m.tracker.Complete(subdomain, false, dropErr)
		m.crashTrackerClient.LogAndReportErrors(ctx, dropErr, fmt.Sprintf("deprovisioning tenant %s", subdomain))
		return fmt.Errorf("%w: dropping schema for %s: %w", ErrTenantDeletionFailed, subdomain, dropErr)
	}
	stepMetadata[stepSchemaDropped] = true

	if err = m.tenants.Delete(ctx, subdomain); err != nil {
		if failErr := m.provisioningLogs.Fail(ctx, plog.ID, err.Error()); failErr != nil {
			log.WithContext(ctx).Errorf("marking provisioning log failed for %s: %v", subdomain, failErr)
		}
		m.tracker.Complete(subdomain, false, err)
		return fmt.Errorf("%w: deleting tenant %s: %w", ErrTenantDeletionFailed, subdomain, err)
	}

	// The tenant row and its events are gone at this point, so the log entry
	// completes without a tenant reference.
	if completeErr := m.provisioningLogs.Complete(ctx, plog.ID, nil, stepMetadata); completeErr != nil {
		log.WithContext(ctx).Errorf("completing provisioning log for %s: %v", subdomain, completeErr)
	}

	m.tracker.Complete(subdomain, true, nil)
	log.WithContext(ctx).Infof("tenant %s deprovisioned", subdomain)
	return nil
}

func (m *Manager) deleteDNSRecord(ctx context.Context, subdomain string) bool {
	fqdn := subdomain + "." + m.mainDomain
	record, err := m.dnsProvider.Get(ctx, fqdn)
	if err != nil {
		if errors.Is(err, dns.ErrNotConfigured) {
			return false
		}
		log.WithContext(ctx).Errorf("looking up DNS record for %s: %v", subdomain, err)
		return false
	}
	if record == nil {
		return true
	}
	if err = m.dnsProvider.Delete(ctx, record.ID); err != nil {
		log.WithContext(ctx).Errorf("deleting DNS record for %s: %v", subdomain, err)
		return false
	}
	return true
}

// SuspendTenant moves an active tenant to suspended. Requests for suspended
// tenants are rejected at the resolver.
func (m *Manager) SuspendTenant(ctx context.Context, idOrSubdomain string) (*data.Tenant, error) {
	return m.transitionTenant(ctx, idOrSubdomain, data.SuspendedTenantStatus, data.SuspendAction, data.DeactivationEvent, "tenant suspended")
}

// ActivateTenant moves a suspended tenant back to active.
func (m *Manager) ActivateTenant(ctx context.Context, idOrSubdomain string) (*data.Tenant, error) {
	return m.transitionTenant(ctx, idOrSubdomain, data.ActiveTenantStatus, data.ActivateAction, data.ActivationEvent, "tenant activated")
}

func (m *Manager) transitionTenant(
	ctx context.Context, idOrSubdomain string, newStatus data.TenantStatus,
	action data.ProvisioningAction, eventType data.TenantEventType, message string,
) (*data.Tenant, error) {
	tnt, err := m.tenants.GetByIDOrSubdomain(ctx, idOrSubdomain)
	if err != nil {
		return nil, fmt.Errorf("getting tenant %s: %w", idOrSubdomain, err)
	}

	plog, err := m.provisioningLogs.Insert(ctx, tnt.Subdomain, action)
	if err != nil {
		return nil, fmt.Errorf("inserting provisioning log for %s: %w", tnt.Subdomain, err)
	}

	tnt, err = m.tenants.UpdateStatus(ctx, tnt.ID, newStatus)
	if err != nil {
		if failErr := m.provisioningLogs.Fail(ctx, plog.ID, err.Error()); failErr != nil {
			log.WithContext(ctx).Errorf("marking provisioning log failed for %s: %v", idOrSubdomain, failErr)
		}
		return nil, fmt.Errorf("updating tenant %s status to %s: %w", idOrSubdomain, newStatus, err)
	}

	if completeErr := m.provisioningLogs.Complete(ctx, plog.ID, &tnt.ID, nil); completeErr != nil {
		log.WithContext(ctx).Errorf("completing provisioning log for %s: %v", tnt.Subdomain, completeErr)
	}
	if _, eventErr := m.tenantEvents.Insert(ctx, tnt.ID, eventType, message, nil); eventErr != nil {
		log.WithContext(ctx).Errorf("recording %s event for %s: %v", eventType, tnt.Subdomain, eventErr)
	}

	log.WithContext(ctx).Infof("%s: %s", message, tnt.Subdomain)
	return tnt, nil
}

// UpdateTenantSettings merges the given settings into the tenant's settings
// document.
func (m *Manager) UpdateTenantSettings(ctx context.Context, subdomain string, settings data.JSONMap) (*data.Tenant, error) {
	tnt, err := m.tenants.UpdateSettings(ctx, subdomain, settings)
	if err != nil {
		return nil, fmt.Errorf("updating settings for tenant %s: %w", subdomain, err)
	}

	if _, eventErr := m.tenantEvents.Insert(ctx, tnt.ID, data.InfoEvent, "tenant settings updated", nil); eventErr != nil {
		log.WithContext(ctx).Errorf("recording settings event for %s: %v", subdomain, eventErr)
	}
	return tnt, nil
}

// TenantStatusResponse is the full provisioning status envelope for a tenant.
type TenantStatusResponse struct {
	Tenant                *data.Tenant          `json:"tenant"`
	Alive                 bool                  `json:"alive"`
	LatestProvisioningLog *data.ProvisioningLog `json:"latest_provisioning_log,omitempty"`
}

// GetTenantStatus returns the tenant together with its most recent
// provisioning log entry.
func (m *Manager) GetTenantStatus(ctx context.Context, idOrSubdomain string) (*TenantStatusResponse, error) {
	tnt, err := m.tenants.GetByIDOrSubdomain(ctx, idOrSubdomain)
	if err != nil {
		return nil, fmt.Errorf("getting tenant %s: %w", idOrSubdomain, err)
	}

	plog, err := m.provisioningLogs.GetLatestForSubdomain(ctx, tnt.Subdomain)
	if err != nil && !errors.Is(err, data.ErrRecordNotFound) {
		return nil, fmt.Errorf("getting latest provisioning log for %s: %w", tnt.Subdomain, err)
	}

	return &TenantStatusResponse{
		Tenant:                tnt,
		Alive:                 tnt.IsAlive(time.Now()),
		LatestProvisioningLog: plog,
	}, nil
}
