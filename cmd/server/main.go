package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/A414347330/vip-cinema/internal/account"
	"github.com/A414347330/vip-cinema/internal/config"
	"github.com/A414347330/vip-cinema/internal/database"
	"github.com/A414347330/vip-cinema/internal/handler"
	"github.com/A414347330/vip-cinema/internal/queue"
	"github.com/A414347330/vip-cinema/internal/repository"
	"github.com/A414347330/vip-cinema/internal/router"
	"github.com/A414347330/vip-cinema/internal/validation"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(migrateCtx, db, cfg.UsersPKColumn); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting disabled")
	}

	users := repository.NewUserRepo(db, cfg.UsersPKColumn)
	codes := repository.NewCodeRepo(db)
	emailCodes := repository.NewEmailCodeRepo(db)
	tokens := repository.NewTokenRepo(db)

	svc := account.NewService(users, codes, emailCodes, tokens,
		cfg.PrivilegedAccount, cfg.CodeDefaultDays)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	router.RegisterRoutes(e, cfg, rdb,
		handler.NewAuthHandler(cfg, svc, tokens),
		handler.NewActivationHandler(svc),
		handler.NewAdminHandler(svc),
	)

	go func() {
		if err := queue.StartActivationConsumer(); err != nil {
			log.Printf("activation consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
