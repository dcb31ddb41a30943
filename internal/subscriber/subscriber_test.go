package subscriber

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supmap-tracker/internal/navigation"
)

type recordingSink struct {
	points []navigation.Point
}

func (r *recordingSink) OnLocationUpdated(p navigation.Point) {
	r.points = append(r.points, p)
}

func newTestSubscriber(sink LocationSink) *Subscriber {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSubscriber(logger, nil, "locations", sink)
}

func TestHandleMessage(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSubscriber(sink)

	err := s.handleMessage(&redis.Message{
		Channel: "locations",
		Payload: `{"timestamp":"2026-10-19T08:30:00Z","lat":48.85,"lon":2.35,"accuracy":6.5}`,
	})
	require.NoError(t, err)
	require.Len(t, sink.points, 1)

	p := sink.points[0]
	assert.True(t, p.Timestamp.Equal(time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)))
	assert.Equal(t, 48.85, p.Lat)
	assert.Equal(t, 2.35, p.Lon)
	require.NotNil(t, p.Accuracy)
	assert.Equal(t, 6.5, *p.Accuracy)
	assert.Nil(t, p.Speed)
}

func TestHandleMessage_Invalid(t *testing.T) {
	payloads := map[string]string{
		"not json":          `{"lat":`,
		"missing timestamp": `{"lat":48.85,"lon":2.35}`,
		"bad latitude":      `{"timestamp":"2026-10-19T08:30:00Z","lat":123,"lon":2.35}`,
		"bad longitude":     `{"timestamp":"2026-10-19T08:30:00Z","lat":48,"lon":-200}`,
		"negative accuracy": `{"timestamp":"2026-10-19T08:30:00Z","lat":48,"lon":2,"accuracy":-1}`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			sink := &recordingSink{}
			err := newTestSubscriber(sink).handleMessage(&redis.Message{Payload: payload})
			assert.Error(t, err)
			assert.Empty(t, sink.points)
		})
	}
}
