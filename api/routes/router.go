package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabworks/fabtrack-backend/api/controllers"
	"github.com/fabworks/fabtrack-backend/api/middleware"
	"github.com/fabworks/fabtrack-backend/internal/analytics"
	"github.com/fabworks/fabtrack-backend/internal/auth"
	"github.com/fabworks/fabtrack-backend/internal/billing"
	"github.com/fabworks/fabtrack-backend/internal/dispatch"
	"github.com/fabworks/fabtrack-backend/internal/inventory"
	"github.com/fabworks/fabtrack-backend/internal/jobcards"
	"github.com/fabworks/fabtrack-backend/internal/orders"
	"github.com/fabworks/fabtrack-backend/internal/purchases"
	"github.com/fabworks/fabtrack-backend/internal/users"
	"github.com/fabworks/fabtrack-backend/internal/vendors"
	"github.com/fabworks/fabtrack-backend/pkg/auth/session"
	"github.com/fabworks/fabtrack-backend/pkg/config"
	"github.com/fabworks/fabtrack-backend/pkg/db"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Auth      auth.Service
	Users     *users.Service
	Inventory *inventory.Service
	Purchases *purchases.Service
	Orders    *orders.Service
	JobCards  *jobcards.Service
	Dispatch  *dispatch.Service
	Vendors   *vendors.Service
	Billing   *billing.Service
	Analytics *analytics.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	admin := string(enums.UserRoleAdmin)
	manager := string(enums.UserRoleManager)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryItemList(svcs.Inventory, logg))
			r.Post("/", controllers.InventoryItemCreate(svcs.Inventory, logg))
			r.Get("/{itemId}", controllers.InventoryItemDetail(svcs.Inventory, logg))
			r.Patch("/{itemId}", controllers.InventoryItemUpdate(svcs.Inventory, logg))
			r.Post("/{itemId}/adjust", controllers.InventoryAdjust(svcs.Inventory, logg))
			r.Get("/{itemId}/transactions", controllers.InventoryTransactions(svcs.Inventory, logg))
			r.Get("/{itemId}/deletion-preview", controllers.InventoryDeletePreview(svcs.Inventory, logg))
			r.With(middleware.RequireAnyRole(logg, admin, manager)).
				Delete("/{itemId}", controllers.InventoryHardDelete(svcs.Inventory, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", controllers.PurchaseList(svcs.Purchases, logg))
			r.Post("/", controllers.PurchaseCreate(svcs.Purchases, logg))
			r.Get("/{purchaseId}", controllers.PurchaseDetail(svcs.Purchases, logg))
			r.Patch("/{purchaseId}", controllers.PurchaseUpdate(svcs.Purchases, logg))
			r.Post("/{purchaseId}/complete", controllers.PurchaseComplete(svcs.Purchases, logg))
			r.With(middleware.RequireAnyRole(logg, admin, manager)).
				Post("/{purchaseId}/reverse", controllers.PurchaseReverse(svcs.Purchases, logg))
			r.With(middleware.RequireAnyRole(logg, admin, manager)).
				Delete("/{purchaseId}", controllers.PurchaseDelete(svcs.Purchases, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Patch("/{orderId}", controllers.OrderUpdate(svcs.Orders, logg))
			r.With(middleware.RequireAnyRole(logg, admin, manager)).
				Delete("/{orderId}", controllers.OrderDelete(svcs.Orders, logg))
			r.With(middleware.RequireAnyRole(logg, admin, manager)).
				Post("/bulk-delete", controllers.OrderBulkDelete(svcs.Orders, logg))
		})

		r.Route("/job-cards", func(r chi.Router) {
			r.Get("/", controllers.JobCardList(svcs.JobCards, logg))
			r.Post("/", controllers.JobCardCreate(svcs.JobCards, logg))
			r.Get("/{jobCardId}", controllers.JobCardDetail(svcs.JobCards, logg))
			r.With(middleware.RequireAnyRole(logg, admin, manager)).
				Delete("/{jobCardId}", controllers.JobCardDelete(svcs.JobCards, logg))
			r.Patch("/{jobCardId}/stages/{stage}/jobs/{jobId}", controllers.JobCardUpdateStageJob(svcs.JobCards, logg))
		})

		r.Route("/dispatches", func(r chi.Router) {
			r.Get("/", controllers.DispatchList(svcs.Dispatch, logg))
			r.Post("/", controllers.DispatchCreate(svcs.Dispatch, logg))
			r.Get("/{dispatchId}", controllers.DispatchDetail(svcs.Dispatch, logg))
			r.With(middleware.RequireAnyRole(logg, admin, manager)).
				Delete("/{dispatchId}", controllers.DispatchDelete(svcs.Dispatch, logg))
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", controllers.VendorList(svcs.Vendors, logg))
			r.Post("/", controllers.VendorCreate(svcs.Vendors, logg))
			r.Get("/{vendorId}", controllers.VendorDetail(svcs.Vendors, logg))
			r.Patch("/{vendorId}", controllers.VendorUpdate(svcs.Vendors, logg))
			r.With(middleware.RequireAnyRole(logg, admin, manager)).
				Delete("/{vendorId}", controllers.VendorDelete(svcs.Vendors, logg))
		})

		r.Route("/bills", func(r chi.Router) {
			r.Get("/", controllers.BillList(svcs.Billing, logg))
			r.Post("/", controllers.BillCreate(svcs.Billing, logg))
			r.Get("/outstanding", controllers.BillOutstanding(svcs.Billing, logg))
			r.Get("/{billId}", controllers.BillDetail(svcs.Billing, logg))
			r.Patch("/{billId}", controllers.BillUpdate(svcs.Billing, logg))
			r.With(middleware.RequireAnyRole(logg, admin, manager)).
				Delete("/{billId}", controllers.BillDelete(svcs.Billing, logg))
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/dashboard", controllers.AnalyticsDashboard(svcs.Analytics, logg))
			r.Get("/consumption", controllers.AnalyticsConsumption(svcs.Analytics, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(admin, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.UserList(svcs.Users, logg))
			r.Post("/", controllers.UserRegister(svcs.Users, logg))
			r.Get("/{userId}", controllers.UserDetail(svcs.Users, logg))
			r.Patch("/{userId}/role", controllers.UserUpdateRole(svcs.Users, logg))
			r.Post("/{userId}/deactivate", controllers.UserDeactivate(svcs.Users, logg))
		})
	})

	return r
}
