package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/middleware/pprof"

	"github.com/Shopify/sarama"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/karunaapp/backend-api-go/broker"
	"github.com/karunaapp/backend-api-go/geocode"
	"github.com/karunaapp/backend-api-go/handler"
	"github.com/karunaapp/backend-api-go/matching"
	"github.com/karunaapp/backend-api-go/middleware/auth"
	"github.com/karunaapp/backend-api-go/middleware/cache"
	log "github.com/karunaapp/backend-api-go/pkg/logger"
	"github.com/karunaapp/backend-api-go/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var passCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "matching_passes_total",
}, []string{"trigger"})

type Application struct {
	app           *fiber.App
	repo          *repository.Repository
	geocoder      *geocode.Client
	engine        *matching.Engine
	kafkaProducer sarama.SyncProducer
}

func (a *Application) Register() {
	a.app.Get("/healthcheck", handler.HealthCheck)
	a.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	a.app.Get("/monitor", monitor.New())
	a.app.Get("/caches/prune", handler.InvalidateCache())
	reportsHandler := handler.NewReportsHandler(a.repo, a.geocoder, a.kafkaProducer)
	a.app.Get("/reports", reportsHandler.HandleList)
	a.app.Post("/reports", reportsHandler.HandleCreate)
	donationsHandler := handler.NewDonationsHandler(a.repo, a.geocoder, a.kafkaProducer)
	a.app.Get("/donations", donationsHandler.HandleList)
	a.app.Post("/donations", donationsHandler.HandleCreate)
	a.app.Get("/missions", handler.GetMissionsHandler(a.repo))
	a.app.Post("/matching/run", handler.RunMatchingHandler(a.engine))
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Logger().Debug("no .env file found")
	}

	repo := repository.New()
	defer repo.Close()

	geocoder := geocode.NewClient()

	kafkaProducer, err := broker.NewProducer()
	if err != nil {
		log.Logger().Warn("failed to init kafka producer, matching triggers disabled", zap.Error(err))
	}

	engine := matching.NewEngine(repo, kafkaProducer, log.Logger(), passCounter)

	app := fiber.New()
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New())
	app.Use(recover.New())
	app.Use(auth.New())
	app.Use(pprof.New())
	app.Use(cache.New())

	application := &Application{app: app, repo: repo, geocoder: geocoder, engine: engine, kafkaProducer: kafkaProducer}
	application.Register()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT)
	signal.Notify(c, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("application gracefully shutting down..")
		_ = app.Shutdown()
	}()

	if err := app.Listen(":80"); err != nil {
		panic(fmt.Sprintf("app error: %s", err.Error()))
	}
}
