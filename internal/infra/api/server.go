package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"popup-shop/internal/usecase"
)

const (
	sessionLimit  = 10
	sessionWindow = time.Minute
)

// Server exposes the shop, activation and ledger use cases over HTTP.
type Server struct {
	shopUC  usecase.ShopUseCase
	actUC   usecase.ActivationUseCase
	txUC    usecase.TransactionUseCase
	auth    *AuthManager
	limiter Limiter
	apiKey  string
	now     func() time.Time
	log     *zerolog.Logger
}

// NewServer builds the API. auth and limiter may be nil; without auth the
// admin routes always answer 401.
func NewServer(
	shopUC usecase.ShopUseCase,
	actUC usecase.ActivationUseCase,
	txUC usecase.TransactionUseCase,
	auth *AuthManager,
	limiter Limiter,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		shopUC:  shopUC,
		actUC:   actUC,
		txUC:    txUC,
		auth:    auth,
		limiter: limiter,
		apiKey:  apiKey,
		now:     time.Now,
		log:     &compLog,
	}
}

// Router returns the full handler tree.
func (s *Server) Router(requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/admin/session", s.createSession)

		r.Post("/shops", s.createShop)
		r.Get("/shops/{id}", s.getShop)
		r.Get("/shops/by-slug/{slug}/admission", s.admission)
		r.Post("/shops/{id}/activate", s.activate)
		r.Get("/shops/{id}/activations", s.listActivations)
		r.Get("/shops/{id}/transactions", s.listTransactions)

		r.Post("/transactions", s.createTransaction)
		r.Get("/transactions/{id}", s.getTransaction)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/activations/{id}/verify", s.verifyActivation)
			r.Post("/transactions/{id}/verify", s.verifyTransaction)
		})
	})
	return r
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	if s.auth == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusUnauthorized, "admin access is not configured")
		})
	}
	return s.auth.RequireAdmin(next)
}

type sessionRequest struct {
	APIKey string `json:"api_key"`
}

type sessionResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || s.apiKey == "" {
		s.log.Error().Msg("Admin API key is not configured")
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if s.limiter != nil {
		ok, err := s.limiter.Allow(r.Context(), "admin-session:"+clientIP(r), sessionLimit, sessionWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			writeError(w, http.StatusTooManyRequests, "too many attempts")
			return
		}
	}

	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(s.apiKey)) != 1 {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	token, exp, err := s.auth.Mint()
	if err != nil {
		s.log.Error().Err(err).Msg("mint admin token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, ExpiresAt: exp.UnixMilli()})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
