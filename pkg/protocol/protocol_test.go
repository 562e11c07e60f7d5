package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectedWireShape(t *testing.T) {
	data, err := NewConnected("conn-1").Marshal()
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "connected", wire["type"])
	assert.EqualValues(t, SchemaVersion, wire["v"])
	assert.Equal(t, "conn-1", wire["connectionId"])
	assert.NotEmpty(t, wire["id"])
	assert.NotContains(t, wire, "deal")
}

func TestDealUpdateCarriesDealVerbatim(t *testing.T) {
	deal := map[string]any{"id": 7, "artistId": 1, "execId": 2, "status": "accepted", "extra": []int{1, 2}}
	env, err := NewDealUpdate(deal)
	require.NoError(t, err)
	data, err := env.Marshal()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeDealUpdate, got.Type)
	assert.JSONEq(t, `{"id":7,"artistId":1,"execId":2,"status":"accepted","extra":[1,2]}`, string(got.Deal))

	ref, err := ParseDealRef(got.Deal)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ref.ID)
	assert.Zero(t, ref.Version)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{`, ErrMalformedEnvelope},
		{"unknown type", `{"type":"typing","v":1}`, ErrUnknownType},
		{"future version", `{"type":"connected","v":2}`, ErrUnsupportedVersion},
		{"missing version", `{"type":"connected"}`, ErrUnsupportedVersion},
		{"deal-update without deal", `{"type":"deal-update","v":1}`, ErrMalformedEnvelope},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseDealRefRequiresID(t *testing.T) {
	_, err := ParseDealRef(json.RawMessage(`{"status":"pending"}`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}
