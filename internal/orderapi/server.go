// Package orderapi serves the order and payment endpoints the intake wizard
// talks to.
package orderapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/config"
	"tailoring-bot/internal/events"
	"tailoring-bot/internal/storage"
)

// Store is the persistence the handlers need.
type Store interface {
	SaveSubmission(ctx context.Context, sub *storage.Submission) (string, error)
	GetSubmission(ctx context.Context, id string) (*storage.Submission, error)
	SaveFitting(ctx context.Context, f *storage.Fitting) error
	CreatePayment(ctx context.Context, p *storage.Payment) error
	GetPayment(ctx context.Context, orderID string) (*storage.Payment, error)
	ConfirmPayment(ctx context.Context, submissionID, orderID, paymentID, signature string) (*storage.ConfirmedOrder, bool, error)
	MarkConfirmed(ctx context.Context, submissionID string) error
	Ping(ctx context.Context) error
}

// Reporter records confirmed orders.
type Reporter interface {
	Append(order storage.ConfirmedOrder) error
}

type Deps struct {
	Store     Store
	Uploads   *storage.Uploads
	Gateway   Gateway
	Report    Reporter
	Publisher events.Publisher
	Catalog   *catalog.Catalog
	Config    config.ServerConfig
	Currency  string
	Logger    *zap.Logger
	Now       func() time.Time
}

type Server struct {
	store     Store
	uploads   *storage.Uploads
	gateway   Gateway
	report    Reporter
	publisher events.Publisher
	catalog   *catalog.Catalog
	cfg       config.ServerConfig
	currency  string
	logger    *zap.Logger
	now       func() time.Time

	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

func New(d Deps) *Server {
	s := &Server{
		store:     d.Store,
		uploads:   d.Uploads,
		gateway:   d.Gateway,
		report:    d.Report,
		publisher: d.Publisher,
		catalog:   d.Catalog,
		cfg:       d.Config,
		currency:  d.Currency,
		logger:    d.Logger,
		now:       d.Now,
		validate:  newValidator(),
		sanitizer: bluemonday.StrictPolicy(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.gateway == nil {
		s.gateway = MockGateway{}
	}
	if s.publisher == nil {
		s.publisher = events.NewNopPublisher(s.logger)
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.currency == "" {
		s.currency = catalog.Currency
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.cfg.MaxUploadSize <= 0 {
		s.cfg.MaxUploadSize = 10 << 20
	}
	if s.cfg.UploadsDir == "" {
		s.cfg.UploadsDir = "uploads"
	}
	if s.uploads == nil {
		s.uploads = storage.NewUploads(s.cfg.UploadsDir, s.cfg.MaxUploadSize)
	}
	return s
}

// Router builds the full HTTP handler: /api routes plus uploaded files.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(s.cfg.CORSOrigins)))

	r.Route("/api", s.Routes)

	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploads.Dir())))
	r.Get("/uploads/*", fs.ServeHTTP)
	return r
}

// Routes registers the API endpoints under the provided router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Get("/products", s.products)

	r.Post("/measurements", s.submitMeasurements)
	r.Get("/measurements/{id}", s.getSubmission)
	r.Post("/virtual-fitting", s.bookFitting)
	r.Post("/upload-image", s.uploadImage)

	r.Post("/create-payment-order", s.createPaymentOrder)
	r.Post("/verify-payment", s.verifyPayment)
	if s.cfg.TestMode {
		r.Post("/test-payment-success/{id}", s.testPaymentSuccess)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// corsOptions allows credentials only for an explicit origin list. A
// wildcard is answered with a literal "*".
func corsOptions(origins []string) cors.Options {
	var allowed []string
	allowAll := false
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			allowAll = true
		default:
			allowed = append(allowed, o)
		}
	}
	credentials := !allowAll && len(allowed) > 0
	if !credentials {
		allowed = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}
}
