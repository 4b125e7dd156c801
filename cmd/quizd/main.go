package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/quizlearn/quizlearn/internal/api/http"
	"github.com/quizlearn/quizlearn/internal/audit"
	auth "github.com/quizlearn/quizlearn/internal/auth/middleware"
	"github.com/quizlearn/quizlearn/internal/config"
	"github.com/quizlearn/quizlearn/internal/db"
	"github.com/quizlearn/quizlearn/internal/difficulty"
	"github.com/quizlearn/quizlearn/internal/familiarity"
	"github.com/quizlearn/quizlearn/internal/quiz"
	"github.com/quizlearn/quizlearn/internal/rbac"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	policies := difficulty.NewSQLRepo(dbh)
	if cfg.SeedDifficulties {
		if err := policies.Seed(ctx); err != nil {
			log.Fatalf("seed difficulty levels: %v", err)
		}
	}

	svc := familiarity.NewService(
		familiarity.NewSQLStore(dbh, cfg.DBDriver),
		policies,
		quiz.NewSQLRepo(dbh),
		audit.NewRecorder(dbh),
	)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("familiarity:submit")).
			Post("/familiarity/attempts", api.SubmitAttemptHandler(svc))
		pr.With(rbac.RequireAny("familiarity:view-own", "familiarity:view-all")).
			Get("/familiarity", api.ListFamiliaritiesHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
