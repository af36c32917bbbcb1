package httphandler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/propsuite/property-management-backend/internal/cert"
	"github.com/propsuite/property-management-backend/internal/serve/httperror"
	"github.com/propsuite/property-management-backend/internal/serve/httpjson"
	"github.com/propsuite/property-management-backend/internal/utils"
)

// CertificatesHandler manages TLS certificates for tenant domains. The
// {subdomain} URL param is resolved against MainDomain to build the FQDN.
type CertificatesHandler struct {
	CertProvider cert.Provider
	MainDomain   string
}

func (h CertificatesHandler) fqdnFromRequest(req *http.Request) (string, error) {
	subdomain := utils.TrimAndLower(chi.URLParam(req, "subdomain"))
	if err := utils.ValidateSubdomain(subdomain); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", subdomain, h.MainDomain), nil
}

func (h CertificatesHandler) GetStatus(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	fqdn, err := h.fqdnFromRequest(req)
	if err != nil {
		httperror.BadRequest("", err, nil).Render(rw)
		return
	}

	info, err := h.CertProvider.GetStatus(ctx, fqdn)
	if err != nil {
		httperror.InternalError(ctx, fmt.Sprintf("Cannot get certificate status for %s", fqdn), err, nil).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, info, httpjson.JSON)
}

func (h CertificatesHandler) Issue(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	fqdn, err := h.fqdnFromRequest(req)
	if err != nil {
		httperror.BadRequest("", err, nil).Render(rw)
		return
	}

	if err = h.CertProvider.Issue(ctx, fqdn); err != nil {
		if errors.Is(err, cert.ErrNotConfigured) {
			httperror.UnprocessableEntity("Certificate provider is not configured", err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, fmt.Sprintf("Cannot issue certificate for %s", fqdn), err, nil).Render(rw)
		return
	}

	log.WithContext(ctx).Infof("Certificate for %s issued", fqdn)
	httpjson.RenderStatus(rw, http.StatusOK, map[string]string{"message": fmt.Sprintf("certificate for %s issued", fqdn)}, httpjson.JSON)
}

func (h CertificatesHandler) Renew(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	fqdn, err := h.fqdnFromRequest(req)
	if err != nil {
		httperror.BadRequest("", err, nil).Render(rw)
		return
	}

	if err = h.CertProvider.Renew(ctx, fqdn); err != nil {
		if errors.Is(err, cert.ErrNotConfigured) {
			httperror.UnprocessableEntity("Certificate provider is not configured", err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, fmt.Sprintf("Cannot renew certificate for %s", fqdn), err, nil).Render(rw)
		return
	}

	log.WithContext(ctx).Infof("Certificate for %s renewed", fqdn)
	httpjson.RenderStatus(rw, http.StatusOK, map[string]string{"message": fmt.Sprintf("certificate for %s renewed", fqdn)}, httpjson.JSON)
}

func (h CertificatesHandler) IssueWildcard(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if err := h.CertProvider.IssueWildcard(ctx, h.MainDomain); err != nil {
		if errors.Is(err, cert.ErrNotConfigured) {
			httperror.UnprocessableEntity("Certificate provider is not configured", err, nil).Render(rw)
			return
		}
		httperror.InternalError(ctx, fmt.Sprintf("Cannot issue wildcard certificate for %s", h.MainDomain), err, nil).Render(rw)
		return
	}

	log.WithContext(ctx).Infof("Wildcard certificate for *.%s issued", h.MainDomain)
	httpjson.RenderStatus(rw, http.StatusOK, map[string]string{"message": fmt.Sprintf("wildcard certificate for *.%s issued", h.MainDomain)}, httpjson.JSON)
}
