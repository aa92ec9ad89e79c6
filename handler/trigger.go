package handler

import (
	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/karunaapp/backend-api-go/matching"
	log "github.com/karunaapp/backend-api-go/pkg/logger"
	"go.uber.org/zap"
)

const MatchingTriggerTopicName = "karuna.matching.trigger"

// publishMatchingTrigger notifies the matching consumer that the pool
// changed. Fire and forget: a lost trigger only delays the record until
// the next pass, so failures are logged and never fail the submission.
func publishMatchingTrigger(producer sarama.SyncProducer, trigger matching.Trigger) {
	if producer == nil {
		return
	}

	bytes, _ := jsoniter.Marshal(trigger)

	_, _, err := producer.SendMessage(&sarama.ProducerMessage{
		Topic: MatchingTriggerTopicName,
		Key:   sarama.StringEncoder(uuid.New().String()),
		Value: sarama.ByteEncoder(bytes),
	})
	if err != nil {
		log.Logger().Error("failed to publish matching trigger",
			zap.String("trigger", trigger.Reason),
			zap.Error(err))
	}
}
