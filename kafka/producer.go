package kafka

import (
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"
)

type Producer struct {
	producer sarama.SyncProducer
}

// NewProducer connects to the broker with a few retries. A nil return is
// fine: publishing degrades to a logged skip, checkout keeps working.
func NewProducer(broker string) *Producer {
	if broker == "" {
		log.Println("KAFKA_BROKER not set — order events disabled")
		return nil
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	var producer sarama.SyncProducer
	var err error

	for i := 1; i <= 5; i++ {
		producer, err = sarama.NewSyncProducer([]string{broker}, config)
		if err == nil {
			log.Printf("Kafka producer connected to %s", broker)
			return &Producer{producer: producer}
		}

		log.Printf("Waiting for Kafka... (%d/5) Error: %v", i, err)
		time.Sleep(3 * time.Second)
	}

	log.Printf("Could not connect to Kafka after 5 attempts — order events disabled: %v", err)
	return nil
}

func (p *Producer) PublishOrderPaidEvent(event interface{}) {
	if p == nil || p.producer == nil {
		log.Println("Kafka producer is nil — order.paid event not sent")
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal order.paid event: %v", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: "order.paid",
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		log.Printf("Failed to send order.paid event: %v", err)
	}
}
