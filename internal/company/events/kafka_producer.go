package events

import (
	"context"
	"encoding/json"

	"github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CompanyCreated EventType = "company_created"
	CompanyUpdated EventType = "company_updated"
	CompanyDeleted EventType = "company_deleted"
	// AssetOrphaned reports a blob store object that could not be deleted
	// and needs a manual sweep.
	AssetOrphaned EventType = "asset_orphaned"
)

// OrphanedAsset identifies an object left behind in the blob store.
type OrphanedAsset struct {
	CompanyID uuid.UUID `json:"company_id"`
	Slot      string    `json:"slot"`
	Ref       string    `json:"ref"`
	Reason    string    `json:"reason"`
}

type Event struct {
	Type    EventType       `json:"type"`
	Company *models.Company `json:"company,omitempty"`
	Orphan  *OrphanedAsset  `json:"orphan,omitempty"`
}

func (e Event) companyID() string {
	switch {
	case e.Company != nil:
		return e.Company.ID.String()
	case e.Orphan != nil:
		return e.Orphan.CompanyID.String()
	default:
		return ""
	}
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	// Create topic if it doesn't exist
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	return newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger, 1000), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, buffer int) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, buffer),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce queues a company lifecycle event. It never blocks.
func (p *Producer) Produce(eventType EventType, company *models.Company) {
	p.enqueue(Event{Type: eventType, Company: company})
}

// ProduceOrphan queues an orphaned-asset record. It never blocks.
func (p *Producer) ProduceOrphan(orphan OrphanedAsset) {
	p.enqueue(Event{Type: AssetOrphaned, Orphan: &orphan})
}

func (p *Producer) enqueue(event Event) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("company_id", event.companyID()),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			for {
				select {
				case event := <-p.events:
					p.sendEvent(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("company_id", event.companyID()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.companyID()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("company_id", event.companyID()),
		)
		return
	}
}

// Close drains queued events and closes the writer.
func (p *Producer) Close() {
	close(p.closeChan)
	<-p.done
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
