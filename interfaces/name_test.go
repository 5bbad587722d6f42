package interfaces

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNameNormalizes(t *testing.T) {
	n, err := NewName("AliCe")
	require.NoError(t, err)
	assert.Equal(t, Name("alice"), n)
}

func TestNewNameRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"space":      "a name",
		"tab":        "a\tb",
		"newline":    "a\nb",
		"control":    "a\x00b",
		"too long":   string(make([]byte, MaxNameLength+1)),
	}
	for label, raw := range cases {
		_, err := NewName(raw)
		assert.Error(t, err, label)
	}
}

func TestLeaseActiveIsLazy(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	lease := NameLease{ExpirationTime: now.Add(time.Hour)}

	assert.True(t, lease.Active(now))
	assert.True(t, lease.Active(now.Add(time.Hour-time.Second)))
	assert.False(t, lease.Active(now.Add(time.Hour)))
	assert.False(t, lease.Active(now.Add(2*time.Hour)))
}

func TestContentIDRoundTrip(t *testing.T) {
	id := ComputeID([]byte("soulname"))

	parsed, err := NewContentIDFromHex(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equal(parsed))

	parsed, err = NewContentIDFromHex("0x" + id.String())
	require.NoError(t, err)
	assert.True(t, id.Equal(parsed))

	_, err = NewContentIDFromHex("abcd")
	assert.Error(t, err)
}
