package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Store is the persistence surface the HTTP layer depends on.
// *storage.SQLiteRepository satisfies it.
type Store interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	UpdateUser(ctx context.Context, u core.User) (core.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	GetExpense(ctx context.Context, userID, id int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, userID, id int64) error
	ListExpenses(ctx context.Context, userID int64, f storage.ExpenseFilter) ([]core.Expense, int, error)
	ListExpensesBetween(ctx context.Context, userID int64, start, end core.Date) ([]core.Expense, error)

	CreateRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error)
	GetRecurring(ctx context.Context, userID, id int64) (core.RecurringExpense, error)
	UpdateRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error)
	DeleteRecurring(ctx context.Context, userID, id int64) error
	ListRecurring(ctx context.Context, userID int64) ([]core.RecurringExpense, error)
	SetRecurringActive(ctx context.Context, id int64, active bool) error

	ListNotifications(ctx context.Context, userID int64, limit int) ([]core.Notification, error)
	UnreadNotificationCount(ctx context.Context, userID int64) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error
	MarkAllNotificationsRead(ctx context.Context, userID int64) error
}

type Server struct {
	httpServer *http.Server
	store      Store
	tokens     *auth.TokenIssuer
	expenses   *services.ExpenseService
	generator  *services.Generator
	resets     *services.PasswordResetService
	reports    *reportCache
	limiter    *rateLimiter
	logger     *slog.Logger

	shutdownOnce sync.Once
}

func NewServer(cfg *config.Config, store Store, tokens *auth.TokenIssuer,
	expenses *services.ExpenseService, generator *services.Generator,
	resets *services.PasswordResetService, logger *slog.Logger) *Server {

	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:     store,
		tokens:    tokens,
		expenses:  expenses,
		generator: generator,
		resets:    resets,
		reports:   newReportCache(cfg.ReportCacheSize, cfg.ReportCacheTTL),
		limiter:   newRateLimiter(cfg.AuthRateLimit),
		logger:    logger,
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort("", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /api/{$}", s.open(s.handleAPIRoot))

	// Auth endpoints are open but rate limited per IP.
	mux.Handle("POST /api/register/{$}", s.open(s.handleRegister))
	mux.Handle("POST /api/login/{$}", s.open(s.handleLogin))
	mux.Handle("POST /api/token/{$}", s.open(s.handleToken))
	mux.Handle("POST /api/token/refresh/{$}", s.open(s.handleTokenRefresh))
	mux.Handle("POST /api/forgot-password/{$}", s.open(s.handleForgotPassword))
	mux.Handle("POST /api/reset-password/{$}", s.open(s.handleResetPassword))

	mux.Handle("GET /api/profile/{$}", s.protected(s.handleGetProfile))
	mux.Handle("PUT /api/profile/{$}", s.protected(s.handleUpdateProfile))
	mux.Handle("GET /api/settings/{$}", s.protected(s.handleGetSettings))
	mux.Handle("PUT /api/settings/{$}", s.protected(s.handleUpdateSettings))
	mux.Handle("POST /api/change-password/{$}", s.protected(s.handleChangePassword))
	mux.Handle("GET /api/budget/{$}", s.protected(s.handleGetBudget))
	mux.Handle("PUT /api/budget/{$}", s.protected(s.handleUpdateBudget))

	mux.Handle("GET /api/expenses/{$}", s.protected(s.handleListExpenses))
	mux.Handle("POST /api/expenses/{$}", s.protected(s.handleCreateExpense))
	mux.Handle("GET /api/expenses/stats/{$}", s.protected(s.handleExpenseStats))
	mux.Handle("GET /api/expenses/by_category/{$}", s.protected(s.handleExpensesByCategory))
	mux.Handle("GET /api/expenses/by_date_range/{$}", s.protected(s.handleExpensesByDateRange))
	mux.Handle("GET /api/expenses/monthly_grouped/{$}", s.protected(s.handleExpensesMonthlyGrouped))
	mux.Handle("GET /api/expenses/{id}/{$}", s.protected(s.handleGetExpense))
	mux.Handle("PUT /api/expenses/{id}/{$}", s.protected(s.handleUpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}/{$}", s.protected(s.handleDeleteExpense))

	mux.Handle("GET /api/recurring/{$}", s.protected(s.handleListRecurring))
	mux.Handle("POST /api/recurring/{$}", s.protected(s.handleCreateRecurring))
	mux.Handle("POST /api/recurring/generate_expenses/{$}", s.protected(s.handleGenerateExpenses))
	mux.Handle("POST /api/recurring/generate_all_recurring_expenses/{$}", s.protected(s.handleGenerateAll))
	mux.Handle("GET /api/recurring/{id}/{$}", s.protected(s.handleGetRecurring))
	mux.Handle("PUT /api/recurring/{id}/{$}", s.protected(s.handleUpdateRecurring))
	mux.Handle("DELETE /api/recurring/{id}/{$}", s.protected(s.handleDeleteRecurring))
	mux.Handle("POST /api/recurring/{id}/toggle_active/{$}", s.protected(s.handleToggleRecurring))

	mux.Handle("GET /api/reports/{$}", s.protected(s.handleReports))
	mux.Handle("GET /api/reports/spending_trend/{$}", s.protected(s.handleSpendingTrend))
	mux.Handle("GET /api/reports/category_summary/{$}", s.protected(s.handleCategorySummary))

	mux.Handle("GET /api/notifications/{$}", s.protected(s.handleListNotifications))
	mux.Handle("POST /api/notifications/{$}", s.protected(s.handleMarkNotifications))

	return mux
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.reports.lru.StartJanitor(time.Minute)
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.reports.lru.Stop()
		s.limiter.stop()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Expense Tracker API",
		"version": "1.0",
		"endpoints": map[string]string{
			"auth":     "/api/token/",
			"register": "/api/register/",
			"profile":  "/api/profile/",
			"expenses": "/api/expenses/",
			"settings": "/api/settings/",
		},
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.GetUserByID(r.Context(), 0); err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ----- middleware -----

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userKey      contextKey = "user"
)

// open wraps unauthenticated endpoints: headers, request id, logging,
// per-IP rate limit.
func (s *Server) open(h http.HandlerFunc) http.Handler {
	return s.withCommon(s.withRateLimit(h))
}

// protected additionally requires a valid bearer access token and puts
// the authenticated user in the request context.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return s.withCommon(s.withAuth(h))
}

func (s *Server) withCommon(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		s.logger.Debug("request started",
			"request_id", requestID, "method", r.Method, "path", r.URL.Path)

		next.ServeHTTP(rw, r)

		s.logger.Info("request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) withRateLimit(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	})
}

func (s *Server) withAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		userID, err := s.tokens.VerifyAccess(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		user, err := s.store.GetUserByID(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next(w, r.WithContext(ctx))
	})
}

// currentUser returns the user placed in the context by withAuth.
func currentUser(r *http.Request) core.User {
	return r.Context().Value(userKey).(core.User)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ----- rate limiting -----

type rateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	visitors map[string]*visitor
	stopCh   chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	rl := &rateLimiter{
		limit:    limit,
		window:   time.Minute,
		visitors: make(map[string]*visitor),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[ip]
	if !ok || now.After(v.resetAt) {
		rl.visitors[ip] = &visitor{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if v.count >= rl.limit {
		return false
	}
	v.count++
	return true
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for ip, v := range rl.visitors {
				if now.After(v.resetAt) {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// ----- report cache -----

// reportCache memoizes rendered report payloads. Every write to a
// user's expenses bumps that user's version, which orphans all of
// their cached entries; the LRU and TTL reclaim the space.
type reportCache struct {
	mu       sync.Mutex
	versions map[int64]uint64
	lru      *cache.LRU[[]byte]
}

func newReportCache(size int, ttl time.Duration) *reportCache {
	return &reportCache{
		versions: make(map[int64]uint64),
		lru:      cache.NewLRU[[]byte](size, ttl),
	}
}

func (rc *reportCache) key(userID int64, r *http.Request) string {
	rc.mu.Lock()
	version := rc.versions[userID]
	rc.mu.Unlock()
	return fmt.Sprintf("%d:%d:%s?%s", userID, version, r.URL.Path, r.URL.RawQuery)
}

func (rc *reportCache) get(userID int64, r *http.Request) ([]byte, bool) {
	return rc.lru.Get(rc.key(userID, r))
}

func (rc *reportCache) set(userID int64, r *http.Request, payload []byte) {
	rc.lru.Set(rc.key(userID, r), payload)
}

func (rc *reportCache) invalidate(userID int64) {
	rc.mu.Lock()
	rc.versions[userID]++
	rc.mu.Unlock()
}
