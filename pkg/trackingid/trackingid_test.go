package trackingid

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGeneratorFormat(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	g := NewGeneratorWith(func() time.Time { return at }, rand.NewSource(1))

	id := g.Next()
	assert.True(t, Valid(id), id)
	assert.Equal(t, "GRV-LOYW3V28-", id[:13])
	assert.Len(t, id, 17)
}

func TestGeneratorUniqueWithinSameMillisecond(t *testing.T) {
	g := NewGeneratorWith(func() time.Time { return time.UnixMilli(1) }, rand.NewSource(42))
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		seen[g.Next()] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"  grv-loyw3v28-ab12 ", "GRV-LOYW3V28-AB12", true},
		{"GRV-LOYW3V28-AB12", "GRV-LOYW3V28-AB12", true},
		{"GRV-LOYW3V28-AB1", "GRV-LOYW3V28-AB1", false},
		{"XYZ-LOYW3V28-AB12", "XYZ-LOYW3V28-AB12", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := Normalize(tc.raw)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.ok, ok, tc.raw)
	}
}
