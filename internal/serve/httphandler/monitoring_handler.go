package httphandler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/propsuite/property-management-backend/internal/monitor"
	"github.com/propsuite/property-management-backend/internal/serve/httperror"
	"github.com/propsuite/property-management-backend/internal/serve/httpjson"
)

const defaultStatsWindow = time.Hour

// MonitoringHandler exposes the in-memory performance tracker: provisioning
// timings, API endpoint stats, and active alerts.
type MonitoringHandler struct {
	Tracker *monitor.PerformanceTracker
}

func (h MonitoringHandler) GetProvisioningStats(rw http.ResponseWriter, req *http.Request) {
	window := defaultStatsWindow
	if raw := req.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			httperror.BadRequest(fmt.Sprintf("invalid window %q, expected a positive duration like 30m or 2h", raw), err, nil).Render(rw)
			return
		}
		window = parsed
	}

	httpjson.RenderStatus(rw, http.StatusOK, h.Tracker.GetProvisioningStats(window), httpjson.JSON)
}

func (h MonitoringHandler) GetAPIStats(rw http.ResponseWriter, req *http.Request) {
	httpjson.RenderStatus(rw, http.StatusOK, h.Tracker.GetAPIStats(), httpjson.JSON)
}

func (h MonitoringHandler) GetAlerts(rw http.ResponseWriter, req *http.Request) {
	alerts := h.Tracker.GetCurrentAlerts()
	if alerts == nil {
		alerts = []monitor.Alert{}
	}
	httpjson.RenderStatus(rw, http.StatusOK, alerts, httpjson.JSON)
}

func (h MonitoringHandler) GetHealth(rw http.ResponseWriter, req *http.Request) {
	httpjson.RenderStatus(rw, http.StatusOK, h.Tracker.GetHealthStatus(), httpjson.JSON)
}
