package httpapi

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/nsridhar76/go-ordermgmt/internal/messaging"
)

type infoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, infoResponse{
		Name:    "Order Management API",
		Version: s.config.Version,
		Status:  "running",
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	if !report.Healthy() {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, report)
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	if !s.health.Check(r.Context()).Healthy() {
		writeDetail(w, r, http.StatusServiceUnavailable, "Service not ready")
		return
	}
	render.JSON(w, r, map[string]string{"status": "ready"})
}

type eventsResponse struct {
	Events []messaging.Event `json:"events"`
	Total  int               `json:"total"`
}

// listEvents returns the bus history, optionally filtered by ?type=.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	events := []messaging.Event{}
	if s.events != nil {
		if h := s.events.History(r.URL.Query().Get("type")); h != nil {
			events = h
		}
	}
	render.JSON(w, r, eventsResponse{Events: events, Total: len(events)})
}
