package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	api "github.com/skill-pulse/skillpulse-engine/internal/api/http"
	"github.com/skill-pulse/skillpulse-engine/internal/auth"
	"github.com/skill-pulse/skillpulse-engine/internal/catalog"
	"github.com/skill-pulse/skillpulse-engine/internal/config"
	"github.com/skill-pulse/skillpulse-engine/internal/db"
	"github.com/skill-pulse/skillpulse-engine/internal/diagnostic"
	"github.com/skill-pulse/skillpulse-engine/internal/mastery"
	"github.com/skill-pulse/skillpulse-engine/internal/practice"
	"github.com/skill-pulse/skillpulse-engine/internal/readiness"
	"github.com/skill-pulse/skillpulse-engine/internal/srs"
)

func main() {
	cfg := config.FromEnv()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}

	// --- Services ---
	rng := catalog.NewLockedRand(time.Now().UnixNano())
	catalogStore := catalog.NewSQLStore(dbh)
	selector := catalog.NewSelector(rng)

	calc := mastery.NewCalculator(cfg.MasteryBaseAlpha, cfg.MasteryInitialLevel)
	masterySvc := mastery.NewService(mastery.NewSQLStore(dbh), catalogStore, calc, logger)

	readinessSvc := readiness.NewService(dbh, masterySvc, logger)

	diagnosticSvc := diagnostic.NewService(
		diagnostic.NewSQLStore(dbh, db.IsUniqueViolation),
		catalogStore, selector, masterySvc, readinessSvc, logger,
		cfg.DiagDefaultQuestions, cfg.DiagTimeoutMinutes)

	srsSvc := srs.NewService(srs.NewSQLStore(dbh, db.IsUniqueViolation), logger)

	practiceSvc := practice.NewService(
		practice.NewSQLStore(dbh, db.IsUniqueViolation),
		catalogStore, masterySvc, rng, logger)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	users := auth.NewUserStore(dbh)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/register", auth.RegisterHandler(authSvc, users))
	r.Post("/auth/login", auth.LoginHandler(authSvc, users))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.Route("/diagnostics", func(dr chi.Router) {
			dr.Post("/", api.StartDiagnosticHandler(diagnosticSvc))
			dr.Post("/restart", api.RestartDiagnosticHandler(diagnosticSvc))
			dr.Get("/active", api.GetActiveSessionHandler(diagnosticSvc))
			dr.Get("/history", api.DiagnosticHistoryHandler(diagnosticSvc))
			dr.Get("/{sessionID}", api.GetDiagnosticStatusHandler(diagnosticSvc))
			dr.Post("/{sessionID}/answers", api.SubmitDiagnosticAnswerHandler(diagnosticSvc))
			dr.Get("/{sessionID}/next", api.NextDiagnosticQuestionHandler(diagnosticSvc))
			dr.Post("/{sessionID}/finish", api.FinishDiagnosticHandler(diagnosticSvc))
			dr.Get("/{sessionID}/result", api.GetDiagnosticResultHandler(diagnosticSvc))
			dr.Post("/{sessionID}/abandon", api.AbandonDiagnosticHandler(diagnosticSvc))
		})

		pr.Route("/practice", func(pr chi.Router) {
			pr.Post("/", api.StartPracticeHandler(practiceSvc))
			pr.Get("/{sessionID}", api.PracticeStatusHandler(practiceSvc))
			pr.Post("/{sessionID}/answers", api.SubmitPracticeAnswerHandler(practiceSvc))
			pr.Get("/{sessionID}/next", api.NextPracticeQuestionHandler(practiceSvc))
			pr.Post("/{sessionID}/end", api.EndPracticeHandler(practiceSvc))
		})

		pr.Route("/mastery", func(mr chi.Router) {
			mr.Get("/weak", api.WeakSkillsHandler(masterySvc))
			mr.Get("/map", api.MasteryMapHandler(masterySvc))
			mr.Get("/skills", api.SkillMapHandler(masterySvc))
			mr.Get("/skills/{skillID}", api.GetOrCreateMasteryHandler(masterySvc))
		})

		pr.Route("/srs", func(sr chi.Router) {
			sr.Post("/cards", api.CreateCardHandler(srsSvc))
			sr.Post("/cards/bulk", api.BulkCreateCardsHandler(srsSvc))
			sr.Get("/cards", api.ListCardsHandler(srsSvc))
			sr.Get("/cards/due", api.DueCardsHandler(srsSvc))
			sr.Get("/cards/{cardID}", api.GetCardHandler(srsSvc))
			sr.Post("/cards/{cardID}/review", api.RecordReviewHandler(srsSvc))
			sr.Patch("/cards/{cardID}/status", api.UpdateCardStatusHandler(srsSvc))
			sr.Delete("/cards/{cardID}", api.DeleteCardHandler(srsSvc))
			sr.Get("/stats", api.SrsStatsHandler(srsSvc))
			sr.Post("/sync", api.SyncCardsHandler(srsSvc))
		})

		pr.Route("/readiness", func(rr chi.Router) {
			rr.Get("/latest", api.LatestReadinessHandler(readinessSvc))
			rr.Get("/history", api.ReadinessHistoryHandler(readinessSvc))
		})
	})

	logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
