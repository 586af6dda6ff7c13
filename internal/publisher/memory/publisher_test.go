package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coinlake/crypto-etl/internal/publisher"
)

func TestPublisherRecordsRunEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "etl-runs", publisher.RunEvent{
		RunID:  "coingecko_1",
		Source: "coingecko",
		Status: "success",
	})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "etl-runs", publisher.RunEvent{
		RunID:  "csv_2",
		Source: "csv",
		Status: "failed",
	})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "coingecko", msgs[0].Payload.(publisher.RunEvent).Source)

	// mutating the returned slice must not leak back into the publisher
	msgs[0].Topic = "modified"
	require.Equal(t, "etl-runs", pub.Messages()[0].Topic)
}
