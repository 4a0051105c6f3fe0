package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"sentinel/config"
	"sentinel/core"
	"sentinel/correlate"
	"sentinel/ml"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// EventStore is the read/query side of the store the API serves from.
type EventStore interface {
	ListAlerts(limit, offset int, unreadOnly bool) []*core.Alert
	MarkAlertRead(id int64) (*core.Alert, error)
	MarkAllAlertsRead() int
	AlertCounts() core.AlertCounts
	ListAttacks(limit, offset int, service core.HoneypotService) []*core.HoneypotAttack
	HoneypotStats() core.HoneypotStats
	ListThreats(limit, offset int) []*core.Threat
	Stats() (core.SystemStats, error)
}

// Submitter is the write side: the correlation pipeline.
type Submitter interface {
	SubmitPhishing(ctx context.Context, content string) (*correlate.PhishingOutcome, error)
	SubmitDeepfake(ctx context.Context, meta ml.FileMeta, result *ml.DeepfakeResult) (*correlate.DeepfakeOutcome, error)
	SubmitAttack(ctx context.Context, attack *core.HoneypotAttack) (*correlate.AttackOutcome, error)
}

// API holds the API server
type API struct {
	router     *mux.Router
	server     *http.Server
	store      EventStore
	submitter  Submitter
	detector   ml.DeepfakeDetector
	hub        *Hub
	config     *config.Config
	logger     *zap.SugaredLogger
	validate   *validator.Validate
	started    time.Time
	limiters   map[string]*rateLimiterEntry
	limitersMu sync.Mutex
	stopCh     chan struct{}
}

// NewAPI creates a new API server
func NewAPI(store EventStore, submitter Submitter, detector ml.DeepfakeDetector, hub *Hub, cfg *config.Config, logger *zap.SugaredLogger) *API {
	api := &API{
		router:    mux.NewRouter(),
		store:     store,
		submitter: submitter,
		detector:  detector,
		hub:       hub,
		config:    cfg,
		logger:    logger,
		validate:  validator.New(),
		started:   time.Now(),
		limiters:  make(map[string]*rateLimiterEntry),
		stopCh:    make(chan struct{}),
	}
	api.setupRoutes()
	go api.cleanupRateLimiters()
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.rateLimitMiddleware)

	a.router.HandleFunc("/api/phishing/analyze", a.analyzePhishing).Methods("POST")
	a.router.HandleFunc("/api/deepfake/analyze", a.analyzeDeepfake).Methods("POST")
	a.router.HandleFunc("/api/honeypot/attack", a.submitAttack).Methods("POST")
	a.router.HandleFunc("/api/honeypot/logs", a.getAttackLogs).Methods("GET")
	a.router.HandleFunc("/api/honeypot/stats", a.getHoneypotStats).Methods("GET")
	a.router.HandleFunc("/api/alerts", a.getAlerts).Methods("GET")
	a.router.HandleFunc("/api/alerts/counts", a.getAlertCounts).Methods("GET")
	a.router.HandleFunc("/api/alerts/read-all", a.markAllAlertsRead).Methods("POST")
	a.router.HandleFunc("/api/alerts/{id:[0-9]+}/read", a.markAlertRead).Methods("POST")
	a.router.HandleFunc("/api/threats", a.getThreats).Methods("GET")
	a.router.HandleFunc("/api/stats", a.getStats).Methods("GET")
	a.router.HandleFunc("/api/health", a.healthCheck).Methods("GET")
	a.router.HandleFunc("/ws", a.handleWebSocket).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
}

// Start starts the API server
func (a *API) Start() error {
	addr := fmt.Sprintf("%s:%d", a.config.API.Host, a.config.API.Port)
	a.server = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
	}
	a.logger.Infow("API server starting", "addr", addr, "tls", a.config.API.TLS)
	if a.config.API.TLS {
		return a.server.ListenAndServeTLS(a.config.API.CertFile, a.config.API.KeyFile)
	}
	return a.server.ListenAndServe()
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	close(a.stopCh)
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the configured router, mainly for tests.
func (a *API) Handler() http.Handler {
	return a.router
}

func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	serveWs(a.hub, a.logger, w, r)
}
