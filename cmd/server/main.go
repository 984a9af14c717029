package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"incubator/internal/analyzer"
	"incubator/internal/auth"
	"incubator/internal/config"
	"incubator/internal/database"
	"incubator/internal/email"
	"incubator/internal/incubator"
	"incubator/internal/logging"
	redisx "incubator/internal/redis"
	"incubator/internal/server"
	"incubator/internal/session"
)

const logFileCap = 20 << 20 // per file, with a few rotated backups

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		fw, err := logging.NewFileWriter(cfg.LogFile, logFileCap, 5)
		if err != nil {
			log.Fatalf("log setup error: %v", err)
		}
		defer fw.Close()
		logOutput = io.MultiWriter(os.Stdout, fw)
	}
	log.SetOutput(logOutput)
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lshortfile)

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()

	redisClient, err := redisx.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer redisClient.Close()

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.SessionIdle)
	if err != nil {
		log.Fatalf("session setup error: %v", err)
	}

	users := auth.NewUserRepository(db)
	tokens := auth.NewTokenRepository(db)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	mailer := email.NewSender(cfg.Email)
	authSvc := auth.NewService(users, tokens, hasher, mailer, cfg.BaseURL, cfg.VerificationTTL, cfg.ResetTTL)

	api := server.NewServer(cfg, server.Deps{
		Auth:         authSvc,
		Users:        users,
		Sessions:     sessions,
		Revoked:      session.NewRevocationList(redisClient, cfg.SessionIdle),
		Limiter:      &auth.RateLimiter{Redis: redisClient},
		Hasher:       hasher,
		Mailer:       mailer,
		Tasks:        incubator.NewTaskRepository(db),
		Trainings:    incubator.NewTrainingRepository(db),
		Applications: incubator.NewApplicationRepository(db),
		Content:      incubator.NewContentRepository(db),
		Analyzer:     analyzer.NewCommandAnalyzer(cfg.AnalyzerCommand, cfg.AnalyzerTimeout),
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Router(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	log.Printf("Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
