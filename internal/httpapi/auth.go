package httpapi

import (
	"net/http"

	"github.com/go-chi/render"
)

func (s *Server) loginTest(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	pair, err := s.auth.LoginTest(req.CustomerID)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	render.JSON(w, r, pair)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	pair, err := s.auth.Refresh(req.RefreshToken)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	render.JSON(w, r, pair)
}
