package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetKeepsFirstPosition(t *testing.T) {
	r := NewRecord(0)
	r.Set("b", String("1"))
	r.Set("a", String("2"))
	r.Set("b", String("3"))

	assert.Equal(t, []string{"b", "a"}, r.Keys())
	v, ok := r.Get("b")
	require.True(t, ok)
	s, _ := v.Str()
	assert.Equal(t, "3", s)
}

func TestRecord_JSONPreservesOrder(t *testing.T) {
	r := RecordOf("zeta", "z", "alpha", 1.5, "mid", true, "none", nil)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":1.5,"mid":true,"none":null}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"zeta", "alpha", "mid", "none"}, back.Keys())

	v, _ := back.Get("alpha")
	n, ok := v.Num()
	require.True(t, ok)
	assert.Equal(t, 1.5, n)

	v, _ = back.Get("none")
	assert.True(t, v.IsNull())
}

func TestRecord_UnmarshalRejectsNested(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"a":{"b":1}}`), &r)
	assert.Error(t, err)
}

func TestValue_TextAndEquality(t *testing.T) {
	assert.Equal(t, "10", Number(10).Text())
	assert.Equal(t, "1.5", Number(1.5).Text())
	assert.Equal(t, "true", Bool(true).Text())
	assert.Equal(t, "", Null().Text())

	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-02T00:00:00Z", Date(d).Text())

	assert.True(t, String("1").Equal(String("1")))
	assert.False(t, String("1").Equal(Number(1)))
}
