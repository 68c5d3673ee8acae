package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/genba-erp/genba-erp/internal/api"
	"github.com/genba-erp/genba-erp/internal/app"
	"github.com/genba-erp/genba-erp/internal/auth"
	"github.com/genba-erp/genba-erp/internal/budgets"
	"github.com/genba-erp/genba-erp/internal/cashflow"
	"github.com/genba-erp/genba-erp/internal/dailyreports"
	"github.com/genba-erp/genba-erp/internal/fixedexpenses"
	"github.com/genba-erp/genba-erp/internal/invoices"
	"github.com/genba-erp/genba-erp/internal/masterdata/clients"
	"github.com/genba-erp/genba-erp/internal/masterdata/employees"
	"github.com/genba-erp/genba-erp/internal/masterdata/partners"
	"github.com/genba-erp/genba-erp/internal/masterdata/paymentterms"
	"github.com/genba-erp/genba-erp/internal/observability"
	"github.com/genba-erp/genba-erp/internal/offsets"
	"github.com/genba-erp/genba-erp/internal/paidleave"
	"github.com/genba-erp/genba-erp/internal/platform/cache"
	"github.com/genba-erp/genba-erp/internal/platform/db"
	"github.com/genba-erp/genba-erp/internal/projects"
	"github.com/genba-erp/genba-erp/internal/shared"
	"github.com/genba-erp/genba-erp/internal/webhooks"
	"github.com/genba-erp/genba-erp/jobs"
	"github.com/genba-erp/genba-erp/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookieName, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()

	// Lifecycle events ride the job queue; the worker posts them.
	var publisher webhooks.Publisher = webhooks.NopPublisher{}
	if cfg.WebhookURL != "" {
		jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		publisher = jobsClient
	}

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	clientsService := clients.NewService(clients.NewRepository(pool))
	partnersService := partners.NewService(partners.NewRepository(pool))
	employeesService := employees.NewService(employees.NewRepository(pool))
	termsService := paymentterms.NewService(paymentterms.NewRepository(pool))

	projectsService := projects.NewService(logger, projects.NewRepository(pool), auditLogger, publisher)
	budgetsService := budgets.NewService(logger, budgets.NewRepository(pool), auditLogger)
	reportsService := dailyreports.NewService(logger, dailyreports.NewRepository(pool), budgetsService, auditLogger, publisher)
	cashflowService := cashflow.NewService(logger, cashflow.NewRepository(pool), termsService, auditLogger)
	offsetsService := offsets.NewService(logger, offsets.NewRepository(pool), cashflowService, auditLogger, publisher)
	fixedExpenseService := fixedexpenses.NewService(logger, fixedexpenses.NewRepository(pool), cashflowService, auditLogger)
	leaveService := paidleave.NewService(logger, paidleave.NewRepository(pool), employeesService, auditLogger)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	invoicesService := invoices.NewService(logger, invoices.NewRepository(pool),
		projectsService, clientsService, termsService, cashflowService, pdfClient,
		invoices.CompanyProfile{
			Name:    cfg.CompanyName,
			Address: cfg.CompanyAddress,
			Phone:   cfg.CompanyPhone,
			Bank:    cfg.CompanyBank,
		},
		auditLogger, publisher)
	cashflowService.RegisterSource(cashflow.SourceInvoice, invoicesService)
	cashflowService.RegisterSource(cashflow.SourceExpense, offsetsService)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		Metrics:        metrics,

		AuthHandler:         authHandler,
		ProjectsHandler:     projects.NewHandler(logger, projectsService),
		BudgetsHandler:      budgets.NewHandler(logger, budgetsService),
		DailyReportsHandler: dailyreports.NewHandler(logger, reportsService),
		OffsetsHandler:      offsets.NewHandler(logger, offsetsService, idempotencyStore),
		CashflowHandler:     cashflow.NewHandler(logger, cashflowService),
		FixedExpenseHandler: fixedexpenses.NewHandler(logger, fixedExpenseService),
		PaidLeaveHandler:    paidleave.NewHandler(logger, leaveService),
		InvoicesHandler:     invoices.NewHandler(logger, invoicesService),
		ClientsHandler:      clients.NewHandler(logger, clientsService),
		PartnersHandler:     partners.NewHandler(logger, partnersService),
		EmployeesHandler:    employees.NewHandler(logger, employeesService),
		PaymentTermsHandler: paymentterms.NewHandler(logger, termsService),
		APIHandler:          api.NewHandler(logger, projectsService, reportsService, cfg.InternalAPIKey),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
