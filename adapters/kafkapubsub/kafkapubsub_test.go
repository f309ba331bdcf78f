package kafkapubsub_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/vcon-dev/conserver/adapters/kafkapubsub"
)

func brokers(t *testing.T) []string {
	b := os.Getenv("CONSERVER_KAFKA_BROKERS")
	if b == "" {
		t.Skip("CONSERVER_KAFKA_BROKERS not set")
	}

	return strings.Split(b, ",")
}

func TestPublishSubscribe(t *testing.T) {
	ps := kafkapubsub.New(brokers(t), kafkapubsub.WithGroupID("test-"+uuid.NewString()))
	t.Cleanup(func() {
		_ = ps.Close()
	})

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	topic := "conserver-test-" + uuid.NewString()
	err := ps.Publish(ctx, topic, "vcon-1")
	jtest.RequireNil(t, err)

	sub, err := ps.Subscribe(ctx, topic)
	jtest.RequireNil(t, err)
	defer sub.Close()

	value, err := sub.Recv(ctx)
	jtest.RequireNil(t, err)
	require.Equal(t, "vcon-1", value)
}
