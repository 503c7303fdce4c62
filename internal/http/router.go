package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/http/handlers"
	"internportal/internal/http/metrics"
	httpmw "internportal/internal/http/middleware"
	"internportal/internal/http/response"
)

type RouterDependencies struct {
	AccountHandler     *handlers.AccountHandler
	InternshipHandler  *handlers.InternshipHandler
	ApplicationHandler *handlers.ApplicationHandler
	AdminHandler       *handlers.AdminHandler
	HealthHandler      *handlers.HealthHandler
	Realtime           http.Handler
	AuthMiddleware     *httpmw.AuthMiddleware
	Metrics            *metrics.Collector
	Logger             httpmw.Logger
	AllowedOrigins     []string
	RequestTimeout     time.Duration
	// Limiter counts login attempts per client and email, and submissions
	// per student and internship. Nil disables both limits.
	Limiter     httpmw.Limiter
	LoginPerMin int
	ApplyPerMin int
	TrustProxy  bool
}

const maxBodyBytes = 1 << 20

func NewRouter(deps RouterDependencies) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, common.NewError(common.CodeNotFound, "route not found", nil))
	})

	auth := deps.AuthMiddleware
	protected := func(h http.HandlerFunc, roles ...account.Role) http.Handler {
		if len(roles) == 0 {
			return auth.Authenticate(h)
		}
		return auth.Authenticate(httpmw.RequireRole(roles...)(h))
	}
	public := func(h http.HandlerFunc) http.Handler {
		return auth.Optional(h)
	}

	r.HandleFunc("/health", deps.HealthHandler.Get).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}
	if deps.Realtime != nil {
		r.Handle("/ws", deps.Realtime).Methods(http.MethodGet)
	}

	accounts := r.PathPrefix("/accounts").Subrouter()
	accounts.Handle("/me", protected(deps.AccountHandler.Me)).Methods(http.MethodGet)
	accounts.Handle("/me", protected(deps.AccountHandler.UpdateMe)).Methods(http.MethodPut, http.MethodPatch)
	accounts.Handle("/{role}/signup", public(deps.AccountHandler.Signup)).Methods(http.MethodPost)
	loginLimit := httpmw.RateLimit(deps.Limiter, httpmw.ByClient("login", "email"), deps.LoginPerMin, time.Minute)
	accounts.Handle("/{role}/login", loginLimit(http.HandlerFunc(deps.AccountHandler.Login))).Methods(http.MethodPost)

	internships := r.PathPrefix("/internships").Subrouter()
	internships.Handle("", public(deps.InternshipHandler.List)).Methods(http.MethodGet)
	internships.Handle("", protected(deps.InternshipHandler.Create, account.RoleEmployer)).Methods(http.MethodPost)
	internships.Handle("/{id}", public(deps.InternshipHandler.Get)).Methods(http.MethodGet)
	internships.Handle("/{id}", protected(deps.InternshipHandler.Update)).Methods(http.MethodPut, http.MethodPatch)

	applications := r.PathPrefix("/applications").Subrouter()
	applications.Handle("", protected(deps.ApplicationHandler.List)).Methods(http.MethodGet)
	applyLimit := httpmw.RateLimit(deps.Limiter, httpmw.ByUser("apply", "internship_id"), deps.ApplyPerMin, time.Minute)
	applications.Handle("", protected(applyLimit(http.HandlerFunc(deps.ApplicationHandler.Submit)).ServeHTTP, account.RoleStudent)).Methods(http.MethodPost)
	applications.Handle("/{id}", protected(deps.ApplicationHandler.Get)).Methods(http.MethodGet)
	applications.Handle("/{id}", protected(deps.ApplicationHandler.UpdateStatus)).Methods(http.MethodPut, http.MethodPatch)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Authenticate, httpmw.RequireRole(account.RoleAdmin, account.RoleSuperAdmin))
	admin.HandleFunc("/accounts", deps.AdminHandler.ListAccounts).Methods(http.MethodGet)
	admin.HandleFunc("/employers", deps.AdminHandler.ListEmployers).Methods(http.MethodGet)
	admin.HandleFunc("/employers/{id}/approve", deps.AdminHandler.ApproveEmployer).Methods(http.MethodPut, http.MethodPost)

	return httpmw.Chain(r,
		httpmw.RequestID,
		httpmw.ProxyHeaders(deps.TrustProxy),
		httpmw.Logging(deps.Logger),
		httpmw.CORS(deps.AllowedOrigins),
		httpmw.BodyLimit(maxBodyBytes),
		httpmw.Metrics(deps.Metrics),
		httpmw.Recover(deps.Logger),
		httpmw.Timeout(deps.RequestTimeout),
	)
}
