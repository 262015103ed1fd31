package notifier

import (
	"context"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlePaymentSettledIgnoresOtherEvents(t *testing.T) {
	s := &Service{ServiceName: "notifier-test"}
	m := kafkago.Message{Value: []byte(`{"event_id":"e1","event_type":"OrderCreated","payload":{}}`)}

	// event lain di-skip sebelum menyentuh redis/mailer
	err := s.HandlePaymentSettled(context.Background(), m)
	assert.NoError(t, err)
}

func TestHandlePaymentSettledBadEnvelope(t *testing.T) {
	s := &Service{ServiceName: "notifier-test"}
	err := s.HandlePaymentSettled(context.Background(), kafkago.Message{Value: []byte(`{not json`)})
	require.Error(t, err)
}
