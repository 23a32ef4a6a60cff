package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leengari/flatsql/internal/domain/data"
)

func TestEncodePlainRecords(t *testing.T) {
	c := Default()

	out := c.Marshal([]data.Record{
		{"id", "name", "age"},
		{"1", "Alice", "30"},
	})

	assert.Equal(t, "id-_-name-_-age\n1-_-Alice-_-30\n", string(out))

	out = c.Marshal([]data.Record{{"-5"}})
	assert.Equal(t, "\\-5\n", string(out))
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		records []data.Record
	}{
		{"simple", []data.Record{{"id", "name"}, {"1", "Alice"}}},
		{"delimiter in field", []data.Record{{"a-_-b", "c"}}},
		{"lead char at field edges", []data.Record{{"a-", "-b"}, {"-_", "_-"}}},
		{"backslashes", []data.Record{{`C:\temp\`, `\\`}}},
		{"newlines", []data.Record{{"line1\nline2", "x\r\ny"}}},
		{"empty fields", []data.Record{{"", "", ""}}},
		{"negative numbers", []data.Record{{"-5", "-10"}}},
		{"unicode", []data.Record{{"Zoë", "日本"}}},
	}

	c := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Unmarshal(c.Marshal(tt.records))
			require.NoError(t, err)
			assert.Equal(t, tt.records, got)
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	c := Default()

	_, err := c.Unmarshal([]byte("abc\\"))
	assert.Error(t, err)

	_, err = c.Unmarshal([]byte("a-b\n"))
	assert.Error(t, err)
}

func TestDecodeEmptyInput(t *testing.T) {
	records, err := Default().Unmarshal(nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNewValidatesDelimiter(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("a\\b")
	assert.Error(t, err)

	_, err = New("n|")
	assert.Error(t, err)

	c, err := New("|")
	require.NoError(t, err)
	got, err := c.Unmarshal(c.Marshal([]data.Record{{"a|b", "c"}}))
	require.NoError(t, err)
	assert.Equal(t, []data.Record{{"a|b", "c"}}, got)
}
