package server

import (
	"net/http"

	"staybook/internal/cache"
	"staybook/internal/config"
	"staybook/internal/metrics"
	"staybook/internal/middleware"
	"staybook/internal/modules/booking"
	"staybook/internal/modules/listing"
	"staybook/internal/modules/payment"
	"staybook/internal/modules/review"
	"staybook/internal/modules/user"
	"staybook/internal/pkg/jwt"
	"staybook/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the long-lived resources the API is assembled from. Cache and
// Metrics may be nil.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	StatsDB  *sqlx.DB
	JWT      *jwt.Service
	Gateway  payment.Gateway
	Notifier booking.Notifier
	Cache    *cache.ListingCache
	Metrics  *metrics.Manager
	Log      *zap.Logger
}

type Server struct {
	router *gin.Engine
}

func New(d Deps) *Server {
	cfg := d.Config

	userRepo := repository.NewUserRepository(d.DB)
	listingRepo := repository.NewListingRepository(d.DB)
	bookingRepo := repository.NewBookingRepository(d.DB)
	reviewRepo := repository.NewReviewRepository(d.DB)
	paymentRepo := repository.NewPaymentRepository(d.DB)
	statsRepo := repository.NewStatsRepository(d.StatsDB)

	userHandler := user.NewHandler(user.NewService(userRepo, statsRepo, d.JWT, d.Log.Named("user")))
	listingHandler := listing.NewHandler(listing.NewService(listingRepo, d.Cache, d.Log.Named("listing")))
	bookingHandler := booking.NewHandler(booking.NewService(bookingRepo, userRepo, d.Notifier, d.Metrics, d.Log.Named("booking")))
	reviewHandler := review.NewHandler(review.NewService(reviewRepo, listingRepo, bookingRepo, d.Log.Named("review")))
	paymentHandler := payment.NewHandler(
		payment.NewService(paymentRepo, bookingRepo, d.Gateway, d.Metrics, payment.Config{
			Currency:    cfg.Payment.Currency,
			CallbackURL: cfg.Payment.CallbackURL,
			ReturnURL:   cfg.Payment.ReturnURL,
		}, d.Log.Named("payment")),
		d.Log.Named("payment"),
	)

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(d.Log),
		middleware.Recovery(d.Log),
		middleware.CORS(cfg.CORSOrigins()),
		d.Metrics.Middleware(),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
		})
	})
	if d.Metrics != nil {
		r.GET("/metrics", d.Metrics.Handler())
	}

	v1 := r.Group("/api/v1")
	{
		userHandler.RegisterPublicRoutes(v1)
		listingHandler.RegisterPublicRoutes(v1)
		reviewHandler.RegisterPublicRoutes(v1)
		paymentHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(d.JWT), middleware.CurrentRole(userRepo))
		{
			userHandler.RegisterProtectedRoutes(protected)
			listingHandler.RegisterProtectedRoutes(protected)
			bookingHandler.RegisterProtectedRoutes(protected)
			reviewHandler.RegisterProtectedRoutes(protected)
			paymentHandler.RegisterProtectedRoutes(protected)
		}
	}

	return &Server{router: r}
}

func (s *Server) Router() http.Handler {
	return s.router
}
