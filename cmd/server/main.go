package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jengzang/location-replay-go/internal/api"
	"github.com/jengzang/location-replay-go/internal/config"
	"github.com/jengzang/location-replay-go/internal/database"
	"github.com/jengzang/location-replay-go/internal/handler"
	"github.com/jengzang/location-replay-go/internal/middleware"
	"github.com/jengzang/location-replay-go/internal/repository"
	"github.com/jengzang/location-replay-go/internal/service"
	"github.com/jengzang/location-replay-go/internal/simulation"
)

func main() {
	subject := flag.String("issue-token", "", "print an operator token for this subject and exit")
	ttl := flag.Duration("token-ttl", 24*time.Hour, "lifetime of a token printed by -issue-token")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if *subject != "" {
		if err := issueToken(os.Stdout, cfg.JWTSecret, *subject, *ttl); err != nil {
			log.Fatal("Failed to issue token:", err)
		}
		return
	}

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.NewMigrationManager(db).RunMigrations(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	replayService := service.NewReplayService(repository.NewSampleRepository(db))
	sim, err := simulation.Setup(cfg, simulation.WithRecorder(replayService))
	if err != nil {
		log.Fatal("Failed to set up simulation:", err)
	}
	defer sim.Close()

	if err := replayService.StartRun(sim.RunID(), sim.ProviderCount()); err != nil {
		log.Fatal("Failed to record run:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	go limiter.Sweep(ctx)

	go func() {
		if err := sim.Run(ctx, cfg.TickInterval); err != nil {
			log.Printf("Simulation stopped: %v", err)
			stop()
		}
	}()

	// 初始化路由
	router := api.SetupRouter(cfg, handler.NewReplayHandler(sim, replayService), limiter)
	srv := &http.Server{Addr: cfg.Port, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: server shutdown: %v", err)
		}
	}()

	// 启动服务器
	log.Printf("Server starting on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Failed to start server:", err)
	}
	log.Println("Server stopped")
}

// issueToken writes a bearer token for the control endpoints, signed with
// the configured secret
func issueToken(w io.Writer, secret, subject string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	token, err := middleware.IssueToken(secret, subject, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
