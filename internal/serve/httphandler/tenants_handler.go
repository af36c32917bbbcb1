package httphandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/propsuite/property-management-backend/internal/data"
	"github.com/propsuite/property-management-backend/internal/monitor"
	"github.com/propsuite/property-management-backend/internal/provisioning"
	"github.com/propsuite/property-management-backend/internal/resolver"
	"github.com/propsuite/property-management-backend/internal/serve/httperror"
	"github.com/propsuite/property-management-backend/internal/serve/httpjson"
	"github.com/propsuite/property-management-backend/internal/utils"
)

const (
	defaultTenantPageLimit = 20
	maxTenantPageLimit     = 100
)

type TenantsHandler struct {
	Manager        provisioning.ManagerInterface
	Tenants        data.TenantRegistry
	TenantEvents   data.TenantEventRegistry
	Resolver       *resolver.TenantResolver
	MonitorService monitor.MonitorServiceInterface
}

type CreateTenantRequest struct {
	Subdomain string       `json:"subdomain"`
	Name      string       `json:"name"`
	Settings  data.JSONMap `json:"settings,omitempty"`
}

func (h TenantsHandler) Post(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	var reqBody CreateTenantRequest
	if err := httpjson.DecodeJSONRequest(req, &reqBody); err != nil {
		log.WithContext(ctx).Errorf("decoding request body: %v", err)
		httperror.BadRequest("", err, nil).Render(rw)
		return
	}

	subdomain := utils.TrimAndLower(reqBody.Subdomain)
	if err := utils.ValidateSubdomain(subdomain); err != nil {
		httperror.BadRequest("invalid request body", nil, map[string]interface{}{"subdomain": err.Error()}).Render(rw)
		return
	}

	tnt, err := h.Manager.ProvisionNewTenant(ctx, provisioning.ProvisionTenantRequest{
		Subdomain: subdomain,
		Name:      reqBody.Name,
		Settings:  reqBody.Settings,
	})
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicatedSubdomain):
			httperror.BadRequest(fmt.Sprintf("Tenant %s already exists", subdomain), err, nil).Render(rw)
		case errors.Is(err, provisioning.ErrProvisioningInProgress):
			httperror.Conflict(fmt.Sprintf("Tenant %s is already being provisioned", subdomain), err, nil).Render(rw)
		default:
			httperror.InternalError(ctx, fmt.Sprintf("Could not provision a new tenant: %v", err), err, nil).Render(rw)
		}
		return
	}

	log.WithContext(ctx).Infof("Tenant %s created successfully.", tnt.Subdomain)

	if h.MonitorService != nil {
		if monitorErr := h.MonitorService.MonitorCounters(monitor.TenantsProvisionedTag, map[string]string{"outcome": "success"}); monitorErr != nil {
			log.WithContext(ctx).Errorf("monitoring provisioned tenants counter: %v", monitorErr)
		}
	}

	httpjson.RenderStatus(rw, http.StatusCreated, tnt, httpjson.JSON)
}

func (h TenantsHandler) GetAll(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	offset := parseQueryInt(req, "offset", 0)
	limit := parseQueryInt(req, "limit", defaultTenantPageLimit)
	if limit > maxTenantPageLimit {
		limit = maxTenantPageLimit
	}

	tnts, err := h.Tenants.GetAll(ctx, offset, limit)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get tenants", err, nil).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, tnts, httpjson.JSON)
}

func (h TenantsHandler) GetByIDOrSubdomain(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	arg := chi.URLParam(req, "arg")

	tnt, err := h.Tenants.GetByIDOrSubdomain(ctx, arg)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("tenant %s does not exist", arg), err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, "Cannot get tenant by ID or subdomain", err, nil).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, tnt, httpjson.JSON)
}

func (h TenantsHandler) GetStatus(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	arg := chi.URLParam(req, "arg")

	status, err := h.Manager.GetTenantStatus(ctx, arg)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("tenant %s does not exist", arg), err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, "Cannot get tenant status", err, nil).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, status, httpjson.JSON)
}

func (h TenantsHandler) Suspend(rw http.ResponseWriter, req *http.Request) {
	h.transition(rw, req, h.Manager.SuspendTenant)
}

func (h TenantsHandler) Activate(rw http.ResponseWriter, req *http.Request) {
	h.transition(rw, req, h.Manager.ActivateTenant)
}

func (h TenantsHandler) transition(rw http.ResponseWriter, req *http.Request, fn func(ctx context.Context, idOrSubdomain string) (*data.Tenant, error)) {
	ctx := req.Context()
	arg := chi.URLParam(req, "arg")

	tnt, err := fn(ctx, arg)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			httperror.NotFound(fmt.Sprintf("tenant %s does not exist", arg), err, nil).Render(rw)
		case errors.Is(err, data.ErrInvalidTransition):
			httperror.Conflict(fmt.Sprintf("tenant %s cannot change status: %v", arg, err), err, nil).Render(rw)
		default:
			httperror.InternalError(ctx, "Cannot update tenant status", err, nil).Render(rw)
		}
		return
	}

	if h.Resolver != nil {
		h.Resolver.Invalidate(tnt)
	}

	httpjson.RenderStatus(rw, http.StatusOK, tnt, httpjson.JSON)
}

type UpdateTenantSettingsRequest struct {
	Settings data.JSONMap `json:"settings"`
}

func (h TenantsHandler) Patch(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	arg := chi.URLParam(req, "arg")

	var reqBody UpdateTenantSettingsRequest
	if err := httpjson.DecodeJSONRequest(req, &reqBody); err != nil {
		err = fmt.Errorf("decoding request body: %w", err)
		log.WithContext(ctx).Error(err)
		httperror.BadRequest("", err, nil).Render(rw)
		return
	}
	if len(reqBody.Settings) == 0 {
		httperror.BadRequest("settings cannot be empty", nil, nil).Render(rw)
		return
	}

	tnt, err := h.Manager.UpdateTenantSettings(ctx, arg, reqBody.Settings)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("tenant %s does not exist", arg), err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, "Cannot update tenant settings", err, nil).Render(rw)
		return
	}

	if h.Resolver != nil {
		h.Resolver.Invalidate(tnt)
	}

	httpjson.RenderStatus(rw, http.StatusOK, tnt, httpjson.JSON)
}

func (h TenantsHandler) Delete(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	arg := chi.URLParam(req, "arg")

	tnt, err := h.Tenants.GetByIDOrSubdomain(ctx, arg)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("tenant %s does not exist", arg), err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, "Cannot get tenant by ID or subdomain", err, nil).Render(rw)
		return
	}

	if tnt.Status == data.DeletedTenantStatus {
		log.WithContext(ctx).Warnf("Tenant %s is already deleted", arg)
		httpjson.RenderStatus(rw, http.StatusNotModified, tnt, httpjson.JSON)
		return
	}

	if err = h.Manager.DeprovisionTenant(ctx, arg); err != nil {
		if errors.Is(err, data.ErrInvalidTransition) {
			httperror.Conflict(fmt.Sprintf("tenant %s cannot be deleted in status %s", arg, tnt.Status), err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, fmt.Sprintf("Cannot delete tenant %s", arg), err, nil).Render(rw)
		return
	}

	if h.Resolver != nil {
		h.Resolver.Invalidate(tnt)
	}

	httpjson.RenderStatus(rw, http.StatusOK, map[string]string{"message": fmt.Sprintf("tenant %s deleted", tnt.Subdomain)}, httpjson.JSON)
}

// GetEvents lists the operational event stream for a tenant, most recent
// first.
func (h TenantsHandler) GetEvents(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	arg := chi.URLParam(req, "arg")

	tnt, err := h.Tenants.GetByIDOrSubdomain(ctx, arg)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound(fmt.Sprintf("tenant %s does not exist", arg), err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, "Cannot get tenant by ID or subdomain", err, nil).Render(rw)
		return
	}

	limit := parseQueryInt(req, "limit", defaultTenantPageLimit)
	if limit > maxTenantPageLimit {
		limit = maxTenantPageLimit
	}

	events, err := h.TenantEvents.ListForTenant(ctx, tnt.ID, limit)
	if err != nil {
		httperror.InternalError(ctx, "Cannot list tenant events", err, nil).Render(rw)
		return
	}
	if events == nil {
		events = []data.TenantEvent{}
	}

	httpjson.RenderStatus(rw, http.StatusOK, events, httpjson.JSON)
}

func parseQueryInt(req *http.Request, name string, defaultValue int) int {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}
