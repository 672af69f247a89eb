package mjtest_test

import (
	"testing"

	"github.com/xoplog/microjson/mjtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawLine string

func (l rawLine) AsBytes() []byte { return []byte(l) }
func (l rawLine) ReclaimMemory()  {}

func TestBuffer(t *testing.T) {
	b := mjtest.NewBuffer(t)
	require.NoError(t, b.Line(rawLine(`{"a":1}`+"\n")))
	require.NoError(t, b.Line(rawLine(`{"b":{"c":2}}`+"\n")))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, `{"b":{"c":2}}`, b.Last())
	decoded := b.Decoded(t)
	assert.Equal(t, "1", decoded[0]["a"].(interface{ String() string }).String())
	require.NoError(t, b.Close())
	assert.True(t, b.Closed())
	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, "", b.Last())
}

func TestKeys(t *testing.T) {
	keys, err := mjtest.Keys(`{"z":1,"a":{"x":[1,2]},"m":"s","z":2}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m", "z"}, keys)

	_, err = mjtest.Keys(`[1]`)
	assert.Error(t, err)

	sub, err := mjtest.SubObject(`{"fields":{"id":42,"status":"ok"}}`, "fields")
	require.NoError(t, err)
	keys, err = mjtest.Keys(sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "status"}, keys)
}

func TestDecode(t *testing.T) {
	_, err := mjtest.Decode(`{"a":1} {"b":2}`)
	assert.Error(t, err)
	_, err = mjtest.Decode(`{"a":`)
	assert.Error(t, err)
	m, err := mjtest.Decode(`{"a":"é"}`)
	require.NoError(t, err)
	assert.Equal(t, "é", m["a"])
}
