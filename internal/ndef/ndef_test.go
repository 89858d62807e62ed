package ndef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const creds = `{"elector_id":"E1","public_key":"PK","private_key":"SK"}`

func TestDecodeTextUTF8(t *testing.T) {
	payload := append([]byte{0x02, 'e', 'n'}, creds...)

	text, err := DecodeText(payload)
	require.NoError(t, err)
	assert.Equal(t, creds, text)
}

func TestDecodeTextUTF16(t *testing.T) {
	// "hi" big-endian, no BOM
	got, err := DecodeText([]byte{0x82, 'e', 'n', 0x00, 'h', 0x00, 'i'})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	// "hi" little-endian with BOM
	got, err = DecodeText([]byte{0x80, 0xFF, 0xFE, 'h', 0x00, 'i', 0x00})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
}

func TestDecodeTextEmptyBody(t *testing.T) {
	got, err := DecodeText([]byte{0x02, 'e', 'n'})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestDecodeTextErrors(t *testing.T) {
	cases := map[string][]byte{
		"empty payload":        {},
		"language overrun":     {0x3F, 'e', 'n'},
		"language one too far": {0x03, 'e', 'n'},
		"invalid utf8":         {0x00, 0xff, 0xfe},
		"odd utf16":            {0x80, 0x00, 'h', 0x00},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeText(payload)
			require.Error(t, err)
			assert.True(t, IsDecodingError(err))
		})
	}
}

func TestEncodeTextRoundTrip(t *testing.T) {
	for _, utf16 := range []bool{false, true} {
		payload, err := EncodeText("élector ✓", "fr", utf16)
		require.NoError(t, err)
		assert.Equal(t, utf16, payload[0]&0x80 != 0)
		assert.Equal(t, byte(2), payload[0]&0x3F)

		text, err := DecodeText(payload)
		require.NoError(t, err)
		assert.Equal(t, "élector ✓", text)
	}

	_, err := EncodeText("x", string(make([]byte, 64)), false)
	assert.Error(t, err)
}

func TestParseMessageShortTextRecord(t *testing.T) {
	raw := []byte{0xD1, 0x01, 0x05, 'T', 0x02, 'e', 'n', 'h', 'i'}

	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	require.Len(t, msg.Records, 1)

	rec, err := msg.First()
	require.NoError(t, err)
	assert.True(t, rec.IsText())
	assert.Empty(t, rec.ID)

	text, err := DecodeText(rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestParseMessageLongRecordWithID(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}
	msg := Message{Records: []Record{
		{TNF: TNFMedia, Type: []byte("application/json"), ID: []byte("c1"), Payload: payload},
		{TNF: TNFWellKnown, Type: []byte(RTDText), Payload: []byte{0x00, 'x'}},
	}}

	raw, err := msg.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, byte(0x80|0x08|0x02), raw[0], "first header: MB, IL, long record")

	parsed, err := ParseMessage(raw)
	require.NoError(t, err)
	require.Len(t, parsed.Records, 2)
	assert.Equal(t, payload, parsed.Records[0].Payload)
	assert.Equal(t, []byte("c1"), parsed.Records[0].ID)
	assert.Equal(t, TNFMedia, parsed.Records[0].TNF)
	assert.True(t, parsed.Records[1].IsText())
}

func TestParseMessageErrors(t *testing.T) {
	cases := map[string][]byte{
		"missing message begin": {0x51, 0x01, 0x01, 'T', 0x00},
		"chunked":               {0xF1, 0x01, 0x01, 'T', 0x00},
		"truncated header":      {0xD1, 0x01},
		"payload overrun":       {0xD1, 0x01, 0x09, 'T', 0x02, 'e', 'n'},
		"no message end":        {0x91, 0x01, 0x01, 'T', 0x00},
		"long length truncated": {0xC1, 0x01, 0x00, 0x00},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMessage(raw)
			require.Error(t, err)
			assert.True(t, IsDecodingError(err))
		})
	}

	_, err := ParseMessage(nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestReadDump(t *testing.T) {
	raw := []byte{0xD1, 0x01, 0x05, 'T', 0x02, 'e', 'n', 'h', 'i'}

	got, err := ReadDump(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = ReadDump([]byte("D1 01 05 54 02 65 6E 68 69\n"))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = ReadDump([]byte("D1 0"))
	assert.True(t, IsDecodingError(err))
}

func TestParseMessageKeepsRawTextPayload(t *testing.T) {
	// UTF-16LE with BOM and an invalid UTF-8 body must reach DecodeText untouched.
	payloads := [][]byte{
		append([]byte{0x82, 'e', 'n', 0xff, 0xfe}, []byte("{\x00\"\x00")...),
		{0x02, 'e', 'n', 0xc3, 0x28},
	}
	for _, payload := range payloads {
		rec := Record{TNF: TNFWellKnown, Type: []byte(RTDText), Payload: payload}
		raw, err := Message{Records: []Record{rec}}.MarshalBinary()
		require.NoError(t, err)

		msg, err := ParseMessage(raw)
		require.NoError(t, err)
		first, err := msg.First()
		require.NoError(t, err)
		assert.Equal(t, payload, first.Payload)
	}

	first, err := mustFirst(t, append([]byte{0x82, 'e', 'n', 0xff, 0xfe}, []byte("{\x00\"\x00")...))
	require.NoError(t, err)
	text, err := DecodeText(first.Payload)
	require.NoError(t, err)
	assert.Equal(t, `{"`, text)
}

func mustFirst(t *testing.T, payload []byte) (Record, error) {
	t.Helper()
	raw, err := Message{Records: []Record{{TNF: TNFWellKnown, Type: []byte(RTDText), Payload: payload}}}.MarshalBinary()
	require.NoError(t, err)
	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	return msg.First()
}
