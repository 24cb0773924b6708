package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/solarflow/solarshop-backend/api/controllers"
	"github.com/solarflow/solarshop-backend/api/middleware"
	"github.com/solarflow/solarshop-backend/internal/auth"
	"github.com/solarflow/solarshop-backend/internal/cart"
	"github.com/solarflow/solarshop-backend/internal/catalog"
	"github.com/solarflow/solarshop-backend/internal/installments"
	"github.com/solarflow/solarshop-backend/internal/invoices"
	"github.com/solarflow/solarshop-backend/internal/notifications"
	"github.com/solarflow/solarshop-backend/internal/orders"
	"github.com/solarflow/solarshop-backend/internal/settings"
	"github.com/solarflow/solarshop-backend/internal/warranties"
	"github.com/solarflow/solarshop-backend/pkg/auth/session"
	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/metrics"
	pkgredis "github.com/solarflow/solarshop-backend/pkg/redis"
)

// Cache is the Redis surface used by the HTTP layer.
type Cache interface {
	controllers.Pinger
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Dependencies carries everything NewRouter mounts. Nil services answer 503.
type Dependencies struct {
	DB       controllers.Pinger
	Cache    Cache
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	Auth          auth.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Orders        orders.Service
	Invoices      invoices.Service
	Warranties    warranties.Service
	Installments  installments.Service
	Notifications notifications.Service
	Settings      settings.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App, cfg.Session),
	)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	authn := middleware.NewAuthenticator(cfg.JWT, cfg.Session, deps.Sessions, logg)
	idempotent := middleware.Idempotency(deps.Cache, logg)

	r.Get("/health/live", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(deps.DB, deps.Cache, logg))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Get("/api/public/settings", controllers.PublicSettings(deps.Settings, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CSRF(cfg.Session, logg))

		// Refresh and logout must see expired access tokens, so auth routes stay outside Optional.
		r.Route("/auth", func(r chi.Router) {
			r.Get("/csrf", controllers.AuthCSRF(cfg.Session, logg))
			r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.RateLimit), deps.Cache, logg), middleware.GuestSession(cfg.Session, logg)).
				Post("/login", controllers.AuthLogin(deps.Auth, deps.Cart, cfg.Session, logg))
			r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.RateLimit), deps.Cache, logg), middleware.GuestSession(cfg.Session, logg), idempotent).
				Post("/register", controllers.AuthRegister(deps.Auth, deps.Cart, cfg.Session, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, cfg.Session, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, cfg.Session, logg))
			r.With(authn.Required()).Get("/me", controllers.AuthMe(deps.Auth, logg))
		})

		r.Get("/products", controllers.ListProducts(deps.Catalog, false, logg))
		r.Get("/products/{id}", controllers.GetProduct(deps.Catalog, logg))
		r.Get("/solar-systems", controllers.ListSolarSystems(deps.Catalog, false, logg))
		r.Get("/solar-systems/{id}", controllers.GetSolarSystem(deps.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(authn.Optional())
			r.Use(middleware.GuestSession(cfg.Session, logg))
			r.Use(idempotent)

			r.Get("/cart", controllers.GetCart(deps.Cart, logg))
			r.Delete("/cart", controllers.ClearCart(deps.Cart, logg))
			r.Post("/cart/items", controllers.AddCartItem(deps.Cart, logg))
			r.Patch("/cart/items/{itemId}", controllers.UpdateCartItem(deps.Cart, logg))
			r.Delete("/cart/items/{itemId}", controllers.RemoveCartItem(deps.Cart, logg))

			r.Post("/checkout", controllers.Checkout(deps.Orders, logg))
			r.Post("/orders/custom", controllers.CreateCustomOrder(deps.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.Required())
			r.Use(idempotent)

			r.Get("/orders", controllers.ListMyOrders(deps.Orders, logg))
			r.Get("/orders/{id}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/orders/{id}/cancel", controllers.CancelOrder(deps.Orders, logg))
			r.Get("/orders/{id}/invoice", controllers.DownloadOrderInvoice(deps.Invoices, logg))
			r.Post("/orders/{id}/installment-plan", controllers.CreateInstallmentPlan(deps.Installments, logg))
			r.Get("/installment-plans", controllers.ListMyInstallmentPlans(deps.Installments, logg))

			r.Get("/warranties", controllers.ListMyWarranties(deps.Warranties, logg))
			r.Get("/warranties/{id}", controllers.GetWarranty(deps.Warranties, logg))
			r.Post("/warranties/{id}/claims", controllers.FileWarrantyClaim(deps.Warranties, logg))

			r.Get("/notifications", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/notifications/{id}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authn.Required())
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.CSRF(cfg.Session, logg))
		r.Use(idempotent)

		r.Get("/products", controllers.ListProducts(deps.Catalog, true, logg))
		r.Post("/products", controllers.AdminCreateProduct(deps.Catalog, logg))
		r.Patch("/products/{id}", controllers.AdminUpdateProduct(deps.Catalog, logg))
		r.Get("/solar-systems", controllers.ListSolarSystems(deps.Catalog, true, logg))
		r.Post("/solar-systems", controllers.AdminCreateSolarSystem(deps.Catalog, logg))
		r.Patch("/solar-systems/{id}", controllers.AdminUpdateSolarSystem(deps.Catalog, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
			r.Get("/{id}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{id}/accept", controllers.AdminAcceptOrder(deps.Orders, logg))
			r.Post("/{id}/decline", controllers.AdminDeclineOrder(deps.Orders, logg))
			r.Post("/{id}/cancel", controllers.AdminCancelOrder(deps.Orders, logg))
			r.Post("/{id}/confirm-payment", controllers.AdminConfirmPayment(deps.Orders, logg))
			r.Post("/{id}/schedule-installation", controllers.AdminScheduleInstallation(deps.Orders, logg))
			r.Post("/{id}/mark-installed", controllers.AdminMarkInstalled(deps.Orders, logg))
			r.Post("/{id}/mark-returned", controllers.AdminMarkReturned(deps.Orders, logg))
			r.Post("/{id}/refund", controllers.AdminRefundOrder(deps.Orders, logg))
			r.Put("/{id}/tracking", controllers.AdminUpdateTracking(deps.Orders, logg))
			r.Post("/{id}/invoice", controllers.AdminGenerateInvoice(deps.Invoices, logg))
		})
		r.Get("/invoices/{id}", controllers.AdminDownloadInvoice(deps.Invoices, logg))

		r.Get("/warranty-claims", controllers.AdminListClaims(deps.Warranties, logg))
		r.Patch("/warranty-claims/{id}", controllers.AdminUpdateClaim(deps.Warranties, logg))

		r.Post("/installment-plans/{id}/payments", controllers.AdminRecordInstallmentPayment(deps.Installments, logg))

		r.Get("/settings", controllers.AdminListSettings(deps.Settings, logg))
		r.Put("/settings/{key}", controllers.AdminUpdateSetting(deps.Settings, logg))
	})

	return r
}
