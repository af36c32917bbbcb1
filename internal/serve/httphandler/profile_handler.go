package httphandler

import (
	"net/http"

	"github.com/propsuite/property-management-backend/internal/auth"
	"github.com/propsuite/property-management-backend/internal/data"
	"github.com/propsuite/property-management-backend/internal/serve/httperror"
	"github.com/propsuite/property-management-backend/internal/serve/httpjson"
	"github.com/propsuite/property-management-backend/internal/tenantcontext"
)

// ProfileHandler answers who the caller is: the user from the bearer token and
// the tenant the request resolved to.
type ProfileHandler struct {
	JWTManager auth.JWTManager
}

type ProfileResponse struct {
	User   *auth.User   `json:"user"`
	Tenant *data.Tenant `json:"tenant"`
}

func (h ProfileHandler) GetProfile(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	tnt, err := tenantcontext.GetTenantFromContext(ctx)
	if err != nil {
		httperror.BadRequest("Tenant not found in context", err, nil).Render(rw)
		return
	}

	token, err := tenantcontext.GetTokenFromContext(ctx)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(rw)
		return
	}

	user, err := h.JWTManager.GetUserFromToken(ctx, token)
	if err != nil {
		httperror.Unauthorized("", err, nil).Render(rw)
		return
	}

	httpjson.RenderStatus(rw, http.StatusOK, ProfileResponse{User: user, Tenant: tnt}, httpjson.JSON)
}
