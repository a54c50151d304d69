package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/echolist/backend-go/internal/logger"
	"go.uber.org/zap"
)

// 条目活动事件类型
const (
	ItemCreated   = "item.created"
	ItemCompleted = "item.completed"
	ItemDeleted   = "item.deleted"
)

// ItemEvent 条目活动事件
type ItemEvent struct {
	EventType string    `json:"event_type"`
	ItemID    uint      `json:"item_id"`
	SectionID uint      `json:"section_id"`
	ActorID   uint      `json:"actor_id"`
	IsTask    bool      `json:"is_task"`
	Timestamp time.Time `json:"timestamp"`
}

// Producer Kafka生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

var globalProducer *Producer

// InitProducer 初始化Kafka生产者
func InitProducer(brokers []string, topic string) error {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	globalProducer = &Producer{
		producer: producer,
		topic:    topic,
	}

	logger.Info("Kafka生产者初始化成功", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return nil
}

// GetProducer 获取全局生产者实例
func GetProducer() *Producer {
	return globalProducer
}

// SendEvent 发送条目事件
func (p *Producer) SendEvent(event *ItemEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("Kafka生产者未初始化")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", event.ItemID)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(event.EventType),
			},
			{
				Key:   []byte("actor_id"),
				Value: []byte(fmt.Sprintf("%d", event.ActorID)),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(kafkaMsg)
	if err != nil {
		logger.Error("发送Kafka事件失败", zap.Error(err))
		return fmt.Errorf("发送事件失败: %w", err)
	}

	logger.Debug("Kafka事件发送成功",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("event_type", event.EventType),
		zap.Uint("item_id", event.ItemID))

	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// PublishItemEvent 发送条目事件（便捷方法）
// Kafka 未配置时静默跳过，不影响主流程。
func PublishItemEvent(eventType string, itemID, sectionID, actorID uint, isTask bool) error {
	producer := GetProducer()
	if producer == nil {
		return nil
	}

	return producer.SendEvent(&ItemEvent{
		EventType: eventType,
		ItemID:    itemID,
		SectionID: sectionID,
		ActorID:   actorID,
		IsTask:    isTask,
		Timestamp: time.Now(),
	})
}
