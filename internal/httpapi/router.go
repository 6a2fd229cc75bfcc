// Package httpapi is the REST surface of the order service.
package httpapi

import (
	"context"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nsridhar76/go-ordermgmt/internal/auth"
	"github.com/nsridhar76/go-ordermgmt/internal/domain"
	"github.com/nsridhar76/go-ordermgmt/internal/healthcheck"
	"github.com/nsridhar76/go-ordermgmt/internal/messaging"
	"github.com/nsridhar76/go-ordermgmt/internal/service"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in domain.NewOrderInput) (domain.OrderSnapshot, error)
	GetOrder(ctx context.Context, orderID, customerID int64) (domain.OrderSnapshot, error)
	UpdateOrder(ctx context.Context, orderID, customerID int64, in domain.UpdateOrderInput) (domain.OrderSnapshot, error)
	DeleteOrder(ctx context.Context, orderID, customerID int64) error
	ListOrders(ctx context.Context, customerID int64, page, size int) (service.OrderPage, error)
	OrderHistory(ctx context.Context, orderID, customerID int64) ([]domain.HistoryEntry, error)
}

type AuthService interface {
	LoginTest(customerID int64) (service.TokenPair, error)
	Refresh(refreshToken string) (service.TokenPair, error)
}

// EventHistory exposes the events retained by the bus.
type EventHistory interface {
	History(eventType string) []messaging.Event
}

var (
	_ OrderService = (*service.OrderService)(nil)
	_ AuthService  = (*service.AuthService)(nil)
	_ EventHistory = (*messaging.Bus)(nil)
)

type Config struct {
	Version string

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

type Server struct {
	config  Config
	orders  OrderService
	auth    AuthService
	tokens  *auth.Tokens
	events  EventHistory
	health  *healthcheck.Checker
	metrics *Metrics
	logger  watermill.LoggerAdapter
}

// NewServer wires the handlers. events may be nil when the event system
// is disabled.
func NewServer(
	config Config,
	orders OrderService,
	authService AuthService,
	tokens *auth.Tokens,
	events EventHistory,
	health *healthcheck.Checker,
	metrics *Metrics,
	logger watermill.LoggerAdapter,
) *Server {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	return &Server{
		config:  config,
		orders:  orders,
		auth:    authService,
		tokens:  tokens,
		events:  events,
		health:  health,
		metrics: metrics,
		logger:  logger,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(correlationID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(processTime)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", s.info)
	r.Get("/health", s.healthCheck)
	r.Get("/health/ready", s.readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login-test", s.loginTest)
		r.Post("/auth/refresh", s.refresh)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.tokens))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", s.createOrder)
				r.Get("/", s.listOrders)
				r.Get("/{id}", s.getOrder)
				r.Put("/{id}", s.updateOrder)
				r.Delete("/{id}", s.deleteOrder)
				r.Get("/{id}/history", s.orderHistory)
			})
			r.Get("/events", s.listEvents)
		})
	})

	return r
}
