package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/nsridhar76/go-ordermgmt/internal/auth"
	"github.com/nsridhar76/go-ordermgmt/internal/domain"
	"github.com/nsridhar76/go-ordermgmt/internal/service"
)

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	customerID := mustCustomerID(r)

	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if req.CustomerID != 0 && req.CustomerID != customerID {
		writeDetail(w, r, http.StatusForbidden, "Cannot create orders for another customer")
		return
	}

	order, err := s.orders.CreateOrder(r.Context(), req.toInput(customerID))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, order)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	size, err := queryInt(r, "size", service.DefaultPageSize)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	result, err := s.orders.ListOrders(r.Context(), mustCustomerID(r), page, size)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	render.JSON(w, r, result)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	order, err := s.orders.GetOrder(r.Context(), orderID, mustCustomerID(r))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	render.JSON(w, r, order)
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	var req updateOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	order, err := s.orders.UpdateOrder(r.Context(), orderID, mustCustomerID(r), domain.UpdateOrderInput{Status: req.Status})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	render.JSON(w, r, order)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.orders.DeleteOrder(r.Context(), orderID, mustCustomerID(r)); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	render.JSON(w, r, messageResponse{Message: "Order deleted successfully"})
}

func (s *Server) orderHistory(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	entries, err := s.orders.OrderHistory(r.Context(), orderID, mustCustomerID(r))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	render.JSON(w, r, newHistoryResponse(entries))
}

// mustCustomerID is only called behind auth.Middleware.
func mustCustomerID(r *http.Request) int64 {
	id, ok := auth.CustomerIDFromContext(r.Context())
	if !ok {
		panic("customer id missing from authenticated request")
	}
	return id
}

func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		if domain.IsValidation(err) {
			return err
		}
		return errors.WithStack(domain.NewValidationError("body", err.Error()))
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(key, "must be an integer")
	}
	return v, nil
}
