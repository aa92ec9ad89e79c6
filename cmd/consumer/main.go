package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/karunaapp/backend-api-go/broker"
	"github.com/karunaapp/backend-api-go/consumer"
	"github.com/karunaapp/backend-api-go/matching"
	log "github.com/karunaapp/backend-api-go/pkg/logger"
	"github.com/karunaapp/backend-api-go/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	consumerGroupName = "matching_trigger_consumer"
)

var (
	triggerCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_trigger_events_total",
	}, []string{"topic", "timestamp"})

	passCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_passes_total",
	}, []string{"trigger"})
)

// Consumes matching trigger events published by the submission endpoints
// and runs one pass per event.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Logger().Debug("no .env file found")
	}

	http.HandleFunc("/healthcheck", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(200)
	})

	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":80", nil); err != nil {
			fmt.Fprintf(os.Stderr, "server could not started or stopped: %s", err)
		}
	}()

	client, err := broker.NewConsumerGroup(consumerGroupName)
	if err != nil {
		log.Logger().Panic(err.Error())
		return
	}

	producer, err := broker.NewProducer()
	if err != nil {
		log.Logger().Panic("failed to init kafka producer. err:", zap.Error(err))
	}

	repo := repository.New()
	defer repo.Close()

	engine := matching.NewEngine(repo, producer, log.Logger(), passCounter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	triggerConsumer := consumer.NewConsumer(engine, triggerCounter)
	go func() {
		for {
			if err := client.Consume(ctx, []string{consumer.MatchingTriggerTopicName}, triggerConsumer); err != nil {
				log.Logger().Panic("Error from consumer:", zap.Error(err))
			}
			// check if context was cancelled, signaling that the trigger consumer should stop
			if ctx.Err() != nil {
				return
			}
			triggerConsumer.Ready = make(chan bool)
		}
	}()
	<-triggerConsumer.Ready
	log.Logger().Info("Sarama consumer up and running!...")

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	healthy := true
	for healthy {
		select {
		case <-ctx.Done():
			log.Logger().Info("terminating: context cancelled")
			healthy = false
		case <-sigterm:
			log.Logger().Info("terminating: via signal")
			healthy = false
		}
	}

	cancel()
	if err = client.Close(); err != nil {
		log.Logger().Panic("Error closing client:", zap.Error(err))
	}
}
