package rtl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	name string
	typ  string
}

type fakeProvider struct {
	byName map[string]*fakeHandle
	values map[*fakeHandle]int64
	net    map[*fakeHandle][]Handle
	argv   []string
	time   uint64
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		byName: make(map[string]*fakeHandle),
		values: make(map[*fakeHandle]int64),
		net:    make(map[*fakeHandle][]Handle),
	}
}

func (p *fakeProvider) add(name, typ string, value int64) *fakeHandle {
	h := &fakeHandle{name: name, typ: typ}
	p.byName[name] = h
	p.values[h] = value
	return h
}

func (p *fakeProvider) HandleByName(fullName string) (Handle, bool) {
	h, ok := p.byName[fullName]
	return h, ok
}

func (p *fakeProvider) GetValueInt(h Handle) (int64, bool) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return 0, false
	}
	v, ok := p.values[fh]
	return v, ok
}

func (p *fakeProvider) GetType(h Handle) (string, bool) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return "", false
	}
	return fh.typ, true
}

func (p *fakeProvider) IterateNet(h Handle) []Handle {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return nil
	}
	return p.net[fh]
}

func (p *fakeProvider) Name(h Handle) string {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return ""
	}
	return fh.name
}

func (p *fakeProvider) RegisterCallback(kind CallbackKind, h Handle, fire func()) CbHandle { return 1 }
func (p *fakeProvider) RemoveCallback(cb CbHandle) bool                                    { return true }
func (p *fakeProvider) Control(op ControlOp)                                               {}
func (p *fakeProvider) Time() uint64                                                       { return p.time }
func (p *fakeProvider) Argv() []string                                                     { return p.argv }
func (p *fakeProvider) Rewind(target uint64, clockSignals []string) bool                   { return false }

func TestVPIClientGetValueAndCache(t *testing.T) {
	p := newFakeProvider()
	h := p.add("top.cpu.alu.X", "net", 7)
	c := NewVPIClient(p)

	handle, ok := c.HandleByName("top.cpu.alu.X")
	require.True(t, ok)

	v, ok := c.GetValue(handle)
	require.True(t, ok)
	assert.Equal(t, int64(7), v)

	c.SetSignalCache(true)
	v, ok = c.GetValue(handle)
	require.True(t, ok)
	assert.Equal(t, int64(7), v)

	p.values[h] = 99
	v, ok = c.GetValue(handle)
	require.True(t, ok)
	assert.Equal(t, int64(7), v, "cached value should not reflect the live change")

	c.InvalidateCache()
	v, ok = c.GetValue(handle)
	require.True(t, ok)
	assert.Equal(t, int64(99), v)
}

func TestVPIClientIsValidSignal(t *testing.T) {
	p := newFakeProvider()
	p.add("top.cpu.alu.X", "net", 1)
	c := NewVPIClient(p)

	assert.True(t, c.IsValidSignal("top.cpu.alu.X"))
	assert.False(t, c.IsValidSignal("top.cpu.alu.Y"))
}

func TestInstanceMapperLongestSuffix(t *testing.T) {
	p := newFakeProvider()
	root := p.add("top", "module", 0)
	alu := p.add("top.tb.cpu.alu", "net", 0)
	p.net[root] = []Handle{alu}

	c := NewVPIClient(p)
	m := NewInstanceMapper(c, []string{"cpu.alu"}, []Handle{root})

	got := m.GetFullName("cpu.alu.X")
	assert.Equal(t, "top.tb.cpu.alu.X", got)
}
