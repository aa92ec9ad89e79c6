package consumer

import (
	"fmt"

	"github.com/Shopify/sarama"
	jsoniter "github.com/json-iterator/go"
	"github.com/karunaapp/backend-api-go/matching"
	log "github.com/karunaapp/backend-api-go/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	MatchingTriggerTopicName = "karuna.matching.trigger"
)

// Consumer runs one matching pass per trigger event. Triggers are
// at-most-once and passes are idempotent, so redeliveries and missed
// events are both safe.
type Consumer struct {
	Ready   chan bool
	engine  *matching.Engine
	Counter *prometheus.CounterVec
}

func NewConsumer(engine *matching.Engine, counter *prometheus.CounterVec) *Consumer {
	return &Consumer{
		Ready:   make(chan bool),
		engine:  engine,
		Counter: counter,
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	// Mark the consumer as Ready
	close(consumer.Ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if consumer.Counter != nil {
				consumer.Counter.With(prometheus.Labels{
					"topic":     message.Topic,
					"timestamp": fmt.Sprintf("%d", message.Timestamp.Unix()),
				}).Inc()
			}
			consumer.triggerHandle(message, session)
		case <-session.Context().Done():
			return nil
		}
	}
}

func (consumer *Consumer) triggerHandle(message *sarama.ConsumerMessage, session sarama.ConsumerGroupSession) {
	var trigger matching.Trigger
	if err := jsoniter.Unmarshal(message.Value, &trigger); err != nil {
		log.Logger().Error("could not decode matching trigger", zap.String("message", string(message.Value)), zap.Error(err))
		session.MarkMessage(message, "")
		return
	}

	result, err := consumer.engine.Run(session.Context(), trigger)
	if err != nil {
		// Transient store failures leave the records unresolved, the next
		// trigger or a manual run picks them up.
		log.Logger().Error("matching pass failed", zap.String("trigger", trigger.Reason), zap.Error(err))
		session.MarkMessage(message, "")
		return
	}

	log.Logger().Info("matching pass triggered by event",
		zap.String("trigger", trigger.Reason),
		zap.Int("matches_found", result.MatchesFound),
		zap.Int("missions_created", result.MissionsCreated))

	session.MarkMessage(message, "")
}
