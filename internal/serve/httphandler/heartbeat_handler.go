package httphandler

import (
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/propsuite/property-management-backend/internal/data"
	"github.com/propsuite/property-management-backend/internal/monitor"
	"github.com/propsuite/property-management-backend/internal/resolver"
	"github.com/propsuite/property-management-backend/internal/serve/httperror"
	"github.com/propsuite/property-management-backend/internal/serve/httpjson"
	"github.com/propsuite/property-management-backend/internal/utils"
)

// HeartbeatHandler records tenant liveness pings and answers aliveness
// queries. It extracts the subdomain from the request itself rather than
// requiring a resolved tenant, so an unseen subdomain can register lazily on
// its first heartbeat.
type HeartbeatHandler struct {
	Tenants        data.TenantRegistry
	TenantEvents   data.TenantEventRegistry
	Resolver       *resolver.TenantResolver
	MonitorService monitor.MonitorServiceInterface
}

type HeartbeatRequest struct {
	APIURL string `json:"api_url"`
}

type HeartbeatStatusResponse struct {
	Subdomain string     `json:"subdomain"`
	Alive     bool       `json:"alive"`
	LastSeen  *time.Time `json:"last_seen"`
}

func (h HeartbeatHandler) subdomainFromRequest(req *http.Request) (string, *httperror.HTTPError) {
	subdomain, err := h.Resolver.SubdomainFromRequest(req)
	if err != nil {
		return "", httperror.BadRequest("No tenant identifier in request", err, nil)
	}
	subdomain = utils.TrimAndLower(subdomain)
	if err = utils.ValidateSubdomain(subdomain); err != nil {
		return "", httperror.BadRequest("", err, map[string]interface{}{"subdomain": err.Error()})
	}
	return subdomain, nil
}

func (h HeartbeatHandler) Touch(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	subdomain, httpErr := h.subdomainFromRequest(req)
	if httpErr != nil {
		httpErr.Render(rw)
		return
	}

	var reqBody HeartbeatRequest
	if req.Body != nil && req.ContentLength != 0 {
		if err := httpjson.DecodeJSONRequest(req, &reqBody); err != nil {
			httperror.BadRequest("", err, nil).Render(rw)
			return
		}
	}
	if reqBody.APIURL != "" {
		if err := utils.ValidateURL(reqBody.APIURL); err != nil {
			httperror.BadRequest("", err, map[string]interface{}{"api_url": err.Error()}).Render(rw)
			return
		}
	}

	updated, err := h.Tenants.TouchHeartbeat(ctx, subdomain, reqBody.APIURL)
	if err != nil {
		httperror.InternalError(ctx, "Cannot record tenant heartbeat", err, nil).Render(rw)
		return
	}

	if _, err = h.TenantEvents.Insert(ctx, updated.ID, data.HeartbeatEvent, "heartbeat received", nil); err != nil {
		log.WithContext(ctx).Errorf("recording heartbeat event for tenant %s: %v", updated.Subdomain, err)
	}

	if h.MonitorService != nil {
		if monitorErr := h.MonitorService.MonitorCounters(monitor.TenantHeartbeatsTag, nil); monitorErr != nil {
			log.WithContext(ctx).Errorf("monitoring heartbeat counter: %v", monitorErr)
		}
	}

	httpjson.RenderStatus(rw, http.StatusOK, HeartbeatStatusResponse{
		Subdomain: updated.Subdomain,
		Alive:     updated.IsAlive(time.Now()),
		LastSeen:  updated.LastSeen,
	}, httpjson.JSON)
}

func (h HeartbeatHandler) GetStatus(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	subdomain, httpErr := h.subdomainFromRequest(req)
	if httpErr != nil {
		httpErr.Render(rw)
		return
	}

	tnt, err := h.Tenants.GetBySubdomain(ctx, subdomain)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound("", err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, "Cannot get tenant aliveness", err, nil).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, HeartbeatStatusResponse{
		Subdomain: tnt.Subdomain,
		Alive:     tnt.IsAlive(time.Now()),
		LastSeen:  tnt.LastSeen,
	}, httpjson.JSON)
}
