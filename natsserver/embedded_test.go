package natsserver

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// High port to stay clear of a locally running NATS on 4222
const testPort = 42231

func TestPublishCountsEvents(t *testing.T) {
	en, err := New(Config{Port: testPort})
	require.NoError(t, err)
	defer en.Shutdown()

	received := make(chan []byte, 1)
	_, err = en.Subscribe("stats.test", func(msg *nats.Msg) {
		received <- msg.Data
	})
	require.NoError(t, err)

	require.NoError(t, en.Publish("stats.test", []byte(`{"id":1}`)))

	select {
	case data := <-received:
		assert.Equal(t, `{"id":1}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered")
	}

	stats := en.GetStats()
	assert.Equal(t, uint64(1), stats.EventsPublished)
	assert.Equal(t, uint64(0), stats.EventsDropped)
	assert.GreaterOrEqual(t, stats.Clients, 1)
}

func TestAddressAndPort(t *testing.T) {
	en, err := New(Config{Port: testPort + 1})
	require.NoError(t, err)
	defer en.Shutdown()

	assert.Equal(t, testPort+1, en.Port())
	assert.Contains(t, en.Address(), "42232")
	assert.NotNil(t, en.Conn())
}

func TestGetStatsNilReceiver(t *testing.T) {
	var en *EmbeddedNATS
	assert.Equal(t, Stats{}, en.GetStats())
}
