package httpapi

import (
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/nsridhar76/go-ordermgmt/internal/domain"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Detail: detail})
}

// writeError maps domain errors to status codes. Anything unexpected is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, logger watermill.LoggerAdapter, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeDetail(w, r, http.StatusUnprocessableEntity, validation.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeDetail(w, r, http.StatusNotFound, "Order not found")
	case errors.Is(err, domain.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, r, http.StatusUnauthorized, "Could not validate credentials")
	case errors.Is(err, domain.ErrForbidden):
		writeDetail(w, r, http.StatusForbidden, "Forbidden")
	default:
		logger.Error("Request failed", err, watermill.LogFields{"method": r.Method, "path": r.URL.Path})
		writeDetail(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
