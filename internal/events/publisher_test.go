package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAssessmentEvent(t *testing.T) {
	a := NewAssessmentEvent(EventInstanceStarted, InstanceLifecycleEvent{InstanceID: "0101250001"})
	b := NewAssessmentEvent(EventInstanceStarted, nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, EventSource, a.Source)
	assert.Equal(t, EventVersion, a.Version)
	assert.WithinDuration(t, time.Now(), a.Timestamp, time.Minute)
}

func TestKafkaEventPublisher_PublishesThroughWatermill(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(context.Background(), "assessments")
	require.NoError(t, err)

	publisher := newKafkaEventPublisher(pubSub, PublisherConfig{TopicName: "assessments", Logger: testLogger()})
	event := NewAssessmentEvent(EventRisksDetected, RisksDetectedEvent{
		SurveyID:   "pig",
		InstanceID: "0101250001",
		Risks:      []RiskSummary{{DiseaseID: "asf", RiskLevel: "critical", TotalWeight: 5, TriggerCount: 3}},
	})

	require.NoError(t, publisher.PublishAssessmentEvent(context.Background(), event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, "risks.detected", msg.Metadata.Get("event_type"))
		assert.Equal(t, EventSource, msg.Metadata.Get("source"))

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		data := decoded["data"].(map[string]interface{})
		assert.Equal(t, "pig", data["survey_id"])
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	m := NewMockEventPublisher(testLogger())

	require.NoError(t, m.PublishAssessmentEvent(context.Background(), NewAssessmentEvent(EventInstanceStarted, nil)))
	require.NoError(t, m.PublishAssessmentEvent(context.Background(), NewAssessmentEvent(EventInstanceDiscarded, nil)))

	assert.Equal(t, []EventType{EventInstanceStarted, EventInstanceDiscarded}, m.EventTypes())
	assert.Len(t, m.GetPublishedEvents(), 2)

	m.ClearEvents()
	assert.Empty(t, m.GetPublishedEvents())
	assert.NoError(t, m.Close())
}
