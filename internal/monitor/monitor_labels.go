package monitor

type HTTPRequestLabels struct {
	Status string
	Route  string
	Method string
}

type DBQueryLabels struct {
	QueryType string
}

type ProvisioningLabels struct {
	Outcome   string
	Subdomain string
}

func (p ProvisioningLabels) ToMap() map[string]string {
	return map[string]string{
		"outcome": p.Outcome,
	}
}

var ProvisioningLabelNames = []string{"outcome"}
