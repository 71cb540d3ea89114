package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestProducer_ProduceAndClose(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	company := &models.Company{ID: uuid.New(), Name: "Test Company"}

	var written []kafka.Message
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = append(written, args.Get(1).([]kafka.Message)...)
		}).
		Return(nil)
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, zaptest.NewLogger(t), 10)
	producer.Produce(CompanyCreated, company)
	producer.ProduceOrphan(OrphanedAsset{CompanyID: company.ID, Slot: "logo", Ref: "memory://logo/a.png", Reason: "timeout"})
	producer.Close()

	mockWriter.AssertExpectations(t)
	require.Len(t, written, 2, "Close drains queued events")

	assert.Equal(t, company.ID.String(), string(written[0].Key))
	var created Event
	require.NoError(t, json.Unmarshal(written[0].Value, &created))
	assert.Equal(t, CompanyCreated, created.Type)
	assert.Equal(t, "Test Company", created.Company.Name)

	assert.Equal(t, company.ID.String(), string(written[1].Key))
	var orphan Event
	require.NoError(t, json.Unmarshal(written[1].Value, &orphan))
	assert.Equal(t, AssetOrphaned, orphan.Type)
	require.NotNil(t, orphan.Orphan)
	assert.Equal(t, "logo", orphan.Orphan.Slot)
	assert.Nil(t, orphan.Company)
}

func TestProducer_DropsWhenQueueFull(t *testing.T) {
	core, recorded := observer.New(zap.WarnLevel)
	producer := &Producer{
		events: make(chan Event, 1), // no loop draining it
		logger: zap.New(core),
	}
	company := &models.Company{ID: uuid.New()}

	producer.Produce(CompanyCreated, company)
	producer.Produce(CompanyUpdated, company)

	assert.Equal(t, 1, len(producer.events))
	assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
}

func TestProducer_SendEventErrors(t *testing.T) {
	company := &models.Company{ID: uuid.New()}

	t.Run("write failure is logged", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		mockWriter := new(MockKafkaWriter)
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))

		producer := &Producer{writer: mockWriter, logger: zap.New(core)}
		producer.sendEvent(context.Background(), Event{Type: CompanyDeleted, Company: company})

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
		mockWriter.AssertExpectations(t)
	})

	t.Run("marshal failure skips the write", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		mockWriter := new(MockKafkaWriter)

		original := jsonMarshal
		jsonMarshal = func(any) ([]byte, error) { return nil, errors.New("boom") }
		defer func() { jsonMarshal = original }()

		producer := &Producer{writer: mockWriter, logger: zap.New(core)}
		producer.sendEvent(context.Background(), Event{Type: CompanyDeleted, Company: company})

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})
}
