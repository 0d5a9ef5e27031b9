package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreeDefaults(t *testing.T) {
	free := Free()

	assert.False(t, free.IsPremium)
	assert.Equal(t, FreeMaxRivals, free.MaxRivals)

	n, capped := free.DailyLimit.Count()
	assert.True(t, capped)
	assert.Equal(t, FreeDailyLimit, n)
}

func TestFromStoredUnlimited(t *testing.T) {
	l := FromStored(-1)

	assert.True(t, l.IsUnlimited())
	_, capped := l.Count()
	assert.False(t, capped)
	assert.Equal(t, -1, l.Stored())
}

func TestFromStoredLimited(t *testing.T) {
	l := FromStored(5)

	assert.False(t, l.IsUnlimited())
	n, capped := l.Count()
	assert.True(t, capped)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, l.Stored())
}

func TestStoredRoundTrip(t *testing.T) {
	for _, v := range []int{-1, 0, 1, 5, 100} {
		assert.Equal(t, v, FromStored(v).Stored())
	}
}

func TestUnlimitedConstructor(t *testing.T) {
	l := Unlimited()
	assert.True(t, l.IsUnlimited())
	assert.Equal(t, -1, l.Stored())
}
