package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/tablekeep/backoffice/internal/auth"
	"github.com/tablekeep/backoffice/internal/cache"
	"github.com/tablekeep/backoffice/internal/config"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/handler"
	"github.com/tablekeep/backoffice/internal/logging"
	mw "github.com/tablekeep/backoffice/internal/middleware"
	"github.com/tablekeep/backoffice/internal/service"
	"github.com/tablekeep/backoffice/internal/validate"
	"github.com/tablekeep/backoffice/internal/ws"
)

// Deps carries the long-lived collaborators the routes are built from.
type Deps struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Queries   *database.Queries
	Pool      *pgxpool.Pool
	Hub       *ws.Hub
	MenuCache cache.MenuCache
	Locker    cache.Locker
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, branch scoping, and role-based middleware as needed.
func New(d Deps) chi.Router {
	cfg, queries := d.Config, d.Queries
	if d.MenuCache == nil {
		d.MenuCache = cache.NoopMenuCache{}
	}
	if d.Locker == nil {
		d.Locker = cache.NoopLocker{}
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(d.Logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	v := validate.New(cfg.DefaultPhoneRegion)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Services
	orderService := service.NewOrderService(d.Pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, d.Hub)
	kitchenService := service.NewKitchenService(queries, d.Hub)
	billingService := service.NewBillingService(d.Pool, func(db database.DBTX) service.BillingStore {
		return database.New(db)
	}, d.Locker)
	paymentService := service.NewPaymentService(d.Pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	})
	inventoryService := service.NewInventoryService(d.Pool, func(db database.DBTX) service.InventoryStore {
		return database.New(db)
	})

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	handler.NewAuthHandler(queries, issuer, v).RegisterRoutes(r)

	// Kitchen feed; browsers pass the token as a query parameter.
	r.With(mw.QueryTokenAuth(cfg.JWTSecret), mw.RequireBranch(queries)).
		Get("/ws/branches/{bid}/kitchen", d.Hub.ServeWS)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		tenancyHandler := handler.NewTenancyHandler(queries, v)
		r.With(mw.RequireRole(enum.UserRoleOwner)).Route("/tenant", tenancyHandler.RegisterTenantRoutes)

		r.Route("/organisations", func(r chi.Router) {
			r.With(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager)).
				Route("/{orgID}/suppliers", handler.NewSupplierHandler(queries, v).RegisterRoutes)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner))
				tenancyHandler.RegisterOrganisationRoutes(r)
			})
		})

		// Branch-scoped routes
		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch(queries))

			// Back-office setup
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
				r.Route("/users", handler.NewUserHandler(queries, v).RegisterRoutes)
				r.Route("/taxes", handler.NewTaxHandler(queries, v).RegisterRoutes)
				r.Route("/vouchers", handler.NewVoucherHandler(queries, v).RegisterRoutes)
				r.Route("/inventory", handler.NewInventoryHandler(queries, inventoryService, v).RegisterRoutes)
				r.Route("/reports", handler.NewReportsHandler(queries).RegisterRoutes)
			})

			// Front of house
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleCashier))
				r.Route("/menu-items", handler.NewMenuItemHandler(queries, d.MenuCache, v).RegisterRoutes)
				r.Route("/orders", handler.NewOrderHandler(orderService, billingService, queries, v).RegisterRoutes)
				r.Route("/bills", func(r chi.Router) {
					handler.NewBillHandler(billingService, queries, v).RegisterRoutes(r)
					r.Route("/{id}/payments", handler.NewPaymentHandler(paymentService, queries, v).RegisterRoutes)
				})
			})

			// Kitchen display
			r.With(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleCashier, enum.UserRoleKitchen)).
				Route("/kots", handler.NewKotHandler(kitchenService, queries, v).RegisterRoutes)
		})
	})

	d.Logger.Info("router initialized")
	return r
}
