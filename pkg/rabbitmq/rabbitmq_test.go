package rabbitmq_test

import (
	"os"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic/pkg/rabbitmq"
)

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := rabbitmq.NewClient(rabbitmq.Config{URL: "not-a-broker-url"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to RabbitMQ")
}

func TestPublishAndConsume(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL not set")
	}

	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: url})
	require.NoError(t, err)
	defer client.Close()

	received := make(chan []byte, 1)
	require.NoError(t, client.ConsumeAppointmentEvents(func(msg amqp.Delivery) error {
		select {
		case received <- msg.Body:
		default:
		}
		return nil
	}))

	require.NoError(t, client.Publish("appointment.created", []byte(`{"type":"appointment.created"}`)))

	select {
	case body := <-received:
		assert.Contains(t, string(body), "appointment.")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for appointment event")
	}
}
