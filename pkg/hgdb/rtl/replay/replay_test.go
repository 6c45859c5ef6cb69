package replay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVCD = `$scope module top $end
$var wire 1 ! clk $end
$scope module cpu $end
$var wire 8 " data $end
$upscope $end
$upscope $end
$enddefinitions $end
#0
0!
b00000000 "
#10
1!
b00000101 "
#20
0!
b00000101 "
#30
1!
b00001010 "
`

func TestParseVCDAndQuery(t *testing.T) {
	w, err := ParseVCD(strings.NewReader(sampleVCD))
	require.NoError(t, err)

	clkID, ok := w.SignalByName("top.clk")
	require.True(t, ok)
	dataID, ok := w.SignalByName("top.cpu.data")
	require.True(t, ok)

	v, ok := w.ValueAt(clkID, 15)
	require.True(t, ok)
	assert.Equal(t, int64(1), v)

	v, ok = w.ValueAt(dataID, 25)
	require.True(t, ok)
	assert.Equal(t, int64(5), v)

	v, ok = w.ValueAt(dataID, 35)
	require.True(t, ok)
	assert.Equal(t, int64(10), v)

	next, ok := w.NextChangeTime(dataID, 10)
	require.True(t, ok)
	assert.Equal(t, uint64(30), next)
}

func TestClientAdvanceFiresOnChange(t *testing.T) {
	w, err := ParseVCD(strings.NewReader(sampleVCD))
	require.NoError(t, err)
	c := New(w, nil)

	h, ok := c.HandleByName("top.clk")
	require.True(t, ok)

	var fired []uint64
	c.RegisterCB(0, h, nil, func(any) {
		fired = append(fired, c.Time())
	})

	for c.Advance() {
	}
	assert.Equal(t, []uint64{10, 20, 30}, fired)
}

func TestClientRewind(t *testing.T) {
	w, err := ParseVCD(strings.NewReader(sampleVCD))
	require.NoError(t, err)
	c := New(w, nil)

	ok := c.Rewind(10, []string{"top.clk"})
	assert.True(t, ok)
	assert.Equal(t, uint64(10), c.Time())
}
