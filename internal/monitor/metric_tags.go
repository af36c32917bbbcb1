package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HTTPRequestDurationTag     MetricTag = "requests_duration_seconds"
	// Tenant provisioning:
	ProvisioningDurationTag   MetricTag = "tenant_provisioning_duration_seconds"
	TenantsProvisionedTag     MetricTag = "tenants_provisioned_total"
	TenantHeartbeatsTag       MetricTag = "tenant_heartbeats_total"
	TenantResolutionMissesTag MetricTag = "tenant_resolution_misses_total"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HTTPRequestDurationTag,
		ProvisioningDurationTag,
		TenantsProvisionedTag,
		TenantHeartbeatsTag,
		TenantResolutionMissesTag,
	}
}
