package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sudo-init-do/linkhub/internal/admin"
	"github.com/sudo-init-do/linkhub/internal/alerts"
	"github.com/sudo-init-do/linkhub/internal/auth"
	"github.com/sudo-init-do/linkhub/internal/config"
	"github.com/sudo-init-do/linkhub/internal/db"
	"github.com/sudo-init-do/linkhub/internal/events"
	"github.com/sudo-init-do/linkhub/internal/exchange"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/messaging"
	mware "github.com/sudo-init-do/linkhub/internal/middleware"
	"github.com/sudo-init-do/linkhub/internal/order"
	"github.com/sudo-init-do/linkhub/internal/settings"
	"github.com/sudo-init-do/linkhub/internal/site"
	"github.com/sudo-init-do/linkhub/internal/support"
	"github.com/sudo-init-do/linkhub/internal/user"
	"github.com/sudo-init-do/linkhub/internal/wallet"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[redis] %s unreachable, settings cache disabled until it recovers: %v", cfg.RedisAddr, err)
	}

	tasks := alerts.NewClient(cfg.RedisAddr)
	defer tasks.Close()

	worker := alerts.NewWorker(cfg.RedisAddr, alerts.NewMailer(cfg.Mail))
	if err := worker.Start(); err != nil {
		log.Fatalf("email worker: %v", err)
	}
	defer worker.Shutdown()

	// Stores
	users := user.NewStore(pool)
	wallets := wallet.NewStore(pool)
	sites := site.NewStore(pool)
	orders := order.NewStore(pool)
	exchanges := exchange.NewStore(pool)
	tickets := support.NewStore(pool)
	messages := messaging.NewStore(pool)
	notifications := alerts.NewStore(pool)
	settingsStore := settings.NewStore(pool, rdb)

	// Events fan out to websocket rooms, the notification inbox and, when
	// configured, Kafka.
	hub := messaging.NewHub()
	publishers := events.Multi{
		hub,
		&alerts.Notifier{Inbox: notifications, Tasks: tasks, AppURL: cfg.AppURL},
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, "linkhub-api")
		defer kafka.Close()
		publishers = append(publishers, kafka)
		log.Printf("[events] publishing to kafka topic %s", cfg.KafkaTopic)
	}

	tokens := &auth.Tokens{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTTL}

	authH := &auth.Handler{Svc: &auth.Service{
		Users:  users,
		Tokens: tokens,
		Events: publishers,
		Tasks:  tasks,
		AppURL: cfg.AppURL,
	}}
	userH := &user.Handler{Users: users}
	siteH := &site.Handler{Sites: sites}
	orderH := &order.Handler{Svc: &order.Service{Repo: orders, Sites: sites, Policy: settingsStore, Events: publishers}}
	exchangeH := &exchange.Handler{Svc: &exchange.Service{Repo: exchanges, Sites: sites, Events: publishers}}
	msgH := &messaging.Handler{Svc: &messaging.Service{Repo: messages, Orders: orders, Events: publishers}, Hub: hub}
	supportH := &support.Handler{Svc: &support.Service{
		Repo:    tickets,
		Machine: support.Machine{AllowReopen: cfg.TicketAllowReopen},
		Events:  publishers,
	}, Hub: hub}
	walletH := &wallet.Handler{Ledger: wallets}
	walletAdminH := &wallet.AdminHandler{Ledger: wallets, Events: publishers}
	notifyH := &alerts.Handler{Notifications: notifications}
	settingsH := &settings.Handler{Store: settingsStore}
	stats := admin.NewStatsStore(pool)
	statsH := &admin.StatsHandler{Stats: stats, Settings: settingsStore}
	adminUsersH := &admin.UsersHandler{Users: users}
	adminWalletsH := &admin.WalletsHandler{Wallets: stats}
	reasonsH := &admin.ReasonsHandler{Reasons: admin.NewReasonStore(pool)}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "linkhub"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		rctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(rctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		if err := rdb.Ping(rctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "redis unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Public routes
	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", authH.Signup)
	authGroup.POST("/login", authH.Login)
	authGroup.POST("/password/request", authH.RequestReset)
	authGroup.POST("/password/reset", authH.ResetPassword)

	e.GET("/user/:id/profile", userH.PublicProfile)
	e.GET("/sites", siteH.Search)
	e.GET("/sellers/:id/reviews", orderH.SellerReviews)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware(tokens, users))
	api.Use(mware.Maintenance(settingsStore))

	api.GET("/auth/me", authH.Me)
	api.PATCH("/user/profile", userH.UpdateProfile)

	api.GET("/sites/me", siteH.Mine)
	api.GET("/sites/:id", siteH.Get)
	api.POST("/sites", siteH.Create, mware.RequireRoles(identity.RoleSeller, identity.RoleAdmin))
	api.PATCH("/sites/:id", siteH.Update)

	api.POST("/orders", orderH.Create)
	api.GET("/orders", orderH.List)
	api.GET("/orders/:id", orderH.Get)
	api.PATCH("/orders/:id", orderH.Act)
	api.POST("/orders/:id/review", orderH.CreateReview)

	api.GET("/orders/:id/messages", msgH.List)
	api.POST("/orders/:id/messages", msgH.Send)
	api.GET("/orders/:id/messages/unread", msgH.Unread)
	api.POST("/orders/:id/messages/:message_id/read", msgH.MarkRead)
	api.GET("/orders/:id/ws", msgH.OrderWS)

	api.POST("/exchanges", exchangeH.Create)
	api.GET("/exchanges", exchangeH.List)
	api.GET("/exchanges/:id", exchangeH.Get)
	api.PATCH("/exchanges/:id", exchangeH.Act)

	api.POST("/support/tickets", supportH.Create)
	api.GET("/support/tickets", supportH.List)
	api.GET("/support/tickets/:id", supportH.Get)
	api.GET("/support/tickets/:id/messages", supportH.Messages)
	api.POST("/support/tickets/:id/messages", supportH.Post)
	api.GET("/support/tickets/:id/ws", supportH.TicketWS)

	api.GET("/wallet/balance", walletH.Balance)
	api.GET("/wallet/transactions", walletH.Transactions)

	api.GET("/notifications", notifyH.List)
	api.GET("/notifications/unread", notifyH.Unread)
	api.POST("/notifications/:id/read", notifyH.MarkRead)

	// Admin routes
	adm := e.Group("/admin")
	adm.Use(mware.JWTMiddleware(tokens, users))
	adm.Use(mware.AdminGuard)

	adm.GET("/stats", statsH.Get)

	adm.GET("/users", adminUsersH.ListUsers)
	adm.POST("/users/:id/suspend", adminUsersH.SuspendUser)
	adm.POST("/users/:id/activate", adminUsersH.ActivateUser)
	adm.POST("/users/:id/promote_seller", adminUsersH.PromoteSeller)
	adm.POST("/users/:id/demote_seller", adminUsersH.DemoteSeller)

	adm.POST("/user-balance", walletAdminH.AdjustBalance)
	adm.GET("/wallets", adminWalletsH.ListWallets)
	adm.GET("/wallets/:id/audit", walletAdminH.Audit)
	adm.GET("/wallets/:id/transactions", walletAdminH.UserTransactions)

	adm.GET("/orders", orderH.List)
	adm.PATCH("/orders/:id", orderH.Act)
	adm.DELETE("/orders/:id", orderH.Delete)

	adm.GET("/exchanges", exchangeH.List)
	adm.PATCH("/exchanges/:id", exchangeH.AdminUpdate)
	adm.DELETE("/exchanges/:id", exchangeH.Delete)

	adm.GET("/support/tickets", supportH.List)
	adm.PATCH("/support/tickets/:id/status", supportH.SetStatus)
	adm.POST("/support/tickets/:id/reply", supportH.Reply)

	adm.GET("/settings", settingsH.List)
	adm.GET("/settings/:key", settingsH.Get)
	adm.PUT("/settings/:key", settingsH.Put)

	adm.GET("/rejection-reasons", reasonsH.List)
	adm.POST("/rejection-reasons", reasonsH.Create)
	adm.DELETE("/rejection-reasons/:id", reasonsH.Delete)

	adm.POST("/sites/:id/suspend", siteH.Suspend)
	adm.POST("/sites/:id/approve", siteH.Approve)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
