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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/config"
	"github.com/dentraining/portfolio-api/internal/database"
	"github.com/dentraining/portfolio-api/internal/handler"
	"github.com/dentraining/portfolio-api/internal/queue"
	"github.com/dentraining/portfolio-api/internal/repository"
	"github.com/dentraining/portfolio-api/internal/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Seed(seedCtx, db, logger,
		os.Getenv("SUPERUSER_EMAIL"), os.Getenv("SUPERUSER_PASSWORD"), cfg.BcryptCost)
	cancel()
	if err != nil {
		logger.Fatal("seed", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unreachable, anonymous rate limiting disabled")
	}

	notifier := queue.NewPublisher(cfg.RabbitMQURL, logger)
	if notifier != nil {
		defer notifier.Close()
		go func() {
			if err := queue.StartNotificationConsumer(cfg.RabbitMQURL, logger); err != nil {
				logger.Warn("notification consumer", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("RABBITMQ_URL unset, notifications disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	org := repository.NewOrgRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	epas := repository.NewEPARepo(db)
	reflections := repository.NewReflectionRepo(db)
	plts := repository.NewPLTRepo(db)
	events := repository.NewSignificantEventRepo(db)
	needs := repository.NewLearningNeedRepo(db)
	logs := repository.NewClinicalLogRepo(db)
	sles := repository.NewSLERepo(db)
	inductions := repository.NewInductionRepo(db)
	reviews := repository.NewReviewRepo(db)
	questionnaires := repository.NewQuestionnaireRepo(db)
	documents := repository.NewDocumentRepo(db)
	dashboards := repository.NewDashboardRepo(db)

	resolver := authz.NewResolver(repository.AuthDirectory{
		Users:       users,
		Assignments: assignments,
		Org:         org,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())

	router.Register(e, router.Deps{
		Cfg:   cfg,
		Log:   logger,
		Redis: rdb,

		Auth:        handler.NewAuthHandler(cfg, logger, users, tokens),
		Org:         handler.NewOrgHandler(logger, users, org),
		UserAdmin:   handler.NewUserAdminHandler(cfg, logger, users, org),
		Assignments: handler.NewAssignmentHandler(logger, users, org, assignments, notifier),
		EPAs:        handler.NewEPAHandler(logger, users, epas),
		Reflections: handler.NewReflectionHandler(db, logger, users, reflections, epas, resolver),
		PLTs:        handler.NewPLTHandler(db, logger, users, plts, epas, resolver),
		Events:      handler.NewSignificantEventHandler(db, logger, users, events, epas, resolver, notifier),
		Needs:       handler.NewLearningNeedHandler(db, logger, users, needs, epas, resolver, notifier),
		Logs:        handler.NewClinicalLogHandler(db, logger, users, logs, epas, resolver),
		SLEs:        handler.NewSLEHandler(db, cfg, logger, users, sles, epas, resolver, notifier),
		External:    handler.NewExternalAssessmentHandler(logger, sles, notifier),
		Inductions:  handler.NewInductionHandler(logger, users, inductions, resolver),
		Reviews:     handler.NewReviewHandler(logger, users, reviews, epas, resolver, notifier),
		Feedback:    handler.NewFeedbackHandler(cfg, logger, users, questionnaires, resolver),
		Documents:   handler.NewDocumentHandler(cfg, logger, users, documents, resolver),
		Dashboard:   handler.NewDashboardHandler(logger, users, org, dashboards, epas, resolver),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
