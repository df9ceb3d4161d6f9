package box

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntRoundTrip(t *testing.T) {
	for _, i := range []int64{0, 1, -1, MaxInt48, MinInt48, 12345, -98765} {
		w := BoxInt(i)
		assert.Equal(t, ExtInt, TagOf(w))
		assert.Equal(t, i, PayloadInt(w))
		assert.False(t, IsFloat(w))
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, d := range []float64{0, 1.5, -1.5, math.Inf(1), math.Inf(-1), 3.14159} {
		w := BoxFloat(d)
		require.True(t, IsFloat(w))
		assert.Equal(t, ExtFloat, TagOf(w))
		assert.Equal(t, d, PayloadDouble(w))
	}
}

func TestBoolRoundTrip(t *testing.T) {
	wt := BoxBool(true)
	wf := BoxBool(false)
	assert.Equal(t, ExtBool, TagOf(wt))
	assert.True(t, PayloadBool(wt))
	assert.False(t, PayloadBool(wf))
}

func TestStringPtrRoundTrip(t *testing.T) {
	var p uint64 = 0x0000_1234_5678_9ABC
	w := BoxStringPtr(p)
	assert.Equal(t, ExtString, TagOf(w))
	assert.Equal(t, p, PayloadPtr(w))
}

func TestListPtrRoundTrip(t *testing.T) {
	var p uint64 = 0x0000_ABCD_EF01_2345
	w := BoxListPtr(p)
	assert.Equal(t, ExtList, TagOf(w))
	assert.Equal(t, p, PayloadPtr(w))
}

func TestToTruth(t *testing.T) {
	assert.False(t, ToTruth(BoxInt(0)))
	assert.True(t, ToTruth(BoxInt(1)))
	assert.False(t, ToTruth(BoxBool(false)))
	assert.True(t, ToTruth(BoxBool(true)))
	assert.False(t, ToTruth(BoxFloat(0)))
	assert.False(t, ToTruth(BoxFloat(math.Copysign(0, -1))))
	assert.True(t, ToTruth(BoxFloat(1)))
	assert.False(t, ToTruth(BoxStringPtr(0)))
	assert.True(t, ToTruth(BoxStringPtr(1)))
}

func TestFitsInt48(t *testing.T) {
	assert.True(t, FitsInt48(MaxInt48))
	assert.True(t, FitsInt48(MinInt48))
	assert.False(t, FitsInt48(MaxInt48+1))
	assert.False(t, FitsInt48(MinInt48-1))
}
