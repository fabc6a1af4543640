package mq

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"chitpay/internal/config"
	"chitpay/internal/model"

	"github.com/IBM/sarama"
)

var KafkaProducer sarama.SyncProducer

// InitKafka 初始化 Kafka 生产者
func InitKafka(cfg *config.KafkaConfig) sarama.SyncProducer {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		log.Fatalf("创建 Kafka 生产者失败: %v", err)
	}

	KafkaProducer = producer
	log.Println("Kafka 生产者创建成功")
	return producer
}

// CloseKafka 关闭 Kafka 生产者
func CloseKafka() {
	if KafkaProducer != nil {
		KafkaProducer.Close()
	}
}

const (
	EventPaymentCreated = "paymentCreated"
	EventPaymentDeleted = "paymentDeleted"
)

// paymentEvent 广播消息体，订阅方（前端网关等）按 type 分发
type paymentEvent struct {
	Type    string         `json:"type"`
	Payment *model.Payment `json:"payment,omitempty"`
	ID      int64          `json:"id,omitempty"`
}

// PaymentEventPublisher 缴款事件广播
// 替代旧系统的 socket.io 全局广播：事件只管发出去，
// 不保证送达也不保证多订阅方之间的顺序，发送失败由调用方记日志。
type PaymentEventPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPaymentEventPublisher(producer sarama.SyncProducer, topic string) *PaymentEventPublisher {
	return &PaymentEventPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *PaymentEventPublisher) PublishPaymentCreated(ctx context.Context, payment *model.Payment) error {
	return p.send(payment.InvoiceNo, &paymentEvent{
		Type:    EventPaymentCreated,
		Payment: payment,
	})
}

func (p *PaymentEventPublisher) PublishPaymentDeleted(ctx context.Context, id int64) error {
	return p.send(strconv.FormatInt(id, 10), &paymentEvent{
		Type: EventPaymentDeleted,
		ID:   id,
	})
}

func (p *PaymentEventPublisher) send(key string, event *paymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

// NoopPublisher 空实现，未启用 Kafka 时使用
type NoopPublisher struct{}

func (NoopPublisher) PublishPaymentCreated(ctx context.Context, payment *model.Payment) error {
	return nil
}

func (NoopPublisher) PublishPaymentDeleted(ctx context.Context, id int64) error {
	return nil
}
