package outbox_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/partstrack-backend/pkg/outbox"
)

func TestNewEnvelopeStampsUTCAndFreshIDs(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	first, err := outbox.NewEnvelope(map[string]int{"qty": 2}, &outbox.ActorRef{Name: "Dana"}, at)
	require.NoError(t, err)
	second, err := outbox.NewEnvelope(map[string]int{"qty": 2}, nil, at)
	require.NoError(t, err)

	assert.Equal(t, outbox.EnvelopeVersion, first.Version)
	assert.Equal(t, time.UTC, first.OccurredAt.Location())
	assert.True(t, first.OccurredAt.Equal(at))
	assert.NotEqual(t, first.EventID, second.EventID)
	assert.JSONEq(t, `{"qty":2}`, string(first.Data))
}

func TestDecodeEnvelopeRejectsUnreadablePayloads(t *testing.T) {
	good, err := outbox.NewEnvelope(map[string]string{"partId": "p-1"}, nil, time.Time{})
	require.NoError(t, err)
	raw, err := json.Marshal(good)
	require.NoError(t, err)

	decoded, err := outbox.DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, good.EventID, decoded.EventID)

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"future version", `{"version":2,"eventId":"e","data":{"a":1}}`, outbox.ErrEnvelopeVersion},
		{"missing version", `{"eventId":"e","data":{"a":1}}`, outbox.ErrEnvelopeVersion},
		{"null data", `{"version":1,"eventId":"e","data":null}`, outbox.ErrEnvelopeEmpty},
		{"no data", `{"version":1,"eventId":"e"}`, outbox.ErrEnvelopeEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := outbox.DecodeEnvelope([]byte(tt.raw))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = outbox.DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}
