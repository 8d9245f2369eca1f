package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-decks/internal/entity"
)

func sampleRecord() entity.Record {
	ts := int64(1700000000000)
	return entity.Record{
		ID:                     "nt-1",
		Rev:                    "2-ff",
		LastPersistedTimestamp: &ts,
		Doctype:                "notetype",
		Subtype:                "base",
		Fields:                 map[string]any{"name": "Basic", "deckId": "deck-1"},
		Objects: []entity.Record{
			{
				ID:                     "f-1",
				LastPersistedTimestamp: &ts,
				Doctype:                "notefield",
				Subtype:                "text",
				Fields:                 map[string]any{"name": "Front", "noteTypeId": "nt-1"},
			},
		},
	}
}

func TestRecordJSONShape(t *testing.T) {
	data, err := json.Marshal(sampleRecord())
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "record", data)
}

func TestRecordJSONRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(sampleRecord())
	require.NoError(t, err)

	var decoded entity.Record
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "nt-1", decoded.ID)
	assert.Equal(t, "2-ff", decoded.Rev)
	assert.Equal(t, int64(1700000000000), decoded.Timestamp())
	assert.Equal(t, entity.Type{Doctype: "notetype", Subtype: "base"}, decoded.Type())
	assert.Equal(t, map[string]any{"name": "Basic", "deckId": "deck-1"}, decoded.Fields)
	require.Len(t, decoded.Objects, 1)
	assert.Equal(t, "nt-1", decoded.Objects[0].Fields["noteTypeId"])
	assert.Empty(t, decoded.Objects[0].Rev)
}

func TestRecordUnmarshalDropsStorageMetadata(t *testing.T) {
	t.Parallel()

	raw := `{"_id":"a","_rev":"1-x","_attachments":{"data":{"length":3}},"_conflicts":[],` +
		`"doctype":"attachment","subtype":"binary","lastPersistedTimestamp":null,"name":"data"}`

	var rec entity.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, map[string]any{"name": "data"}, rec.Fields)
	assert.Nil(t, rec.LastPersistedTimestamp)
	assert.Equal(t, int64(0), rec.Timestamp())
}

func TestRecordMarshalOmitsEmptyRevision(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(entity.Record{ID: "x", Doctype: "deck", Subtype: "deck"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"x","doctype":"deck","subtype":"deck","lastPersistedTimestamp":null}`, string(data))
}
