package jsontree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
	"breakpoints": [
		{"id": 1, "filename": "alu.sv", "line_num": 10, "column_num": 0, "condition": "", "trigger": "", "instance_id": 1}
	],
	"instances": [
		{"id": 1, "name": "top.cpu.alu"}
	],
	"variables": [
		{"id": 1, "value": "5", "is_rtl": false}
	],
	"context_variables": [
		{"name": "a", "breakpoint_id": 1, "variable_id": 1}
	],
	"execution_order": [1]
}`

func TestLoadAndQuery(t *testing.T) {
	tree, err := Load(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	bps, err := tree.GetBreakpoints("alu.sv", 10, 0)
	require.NoError(t, err)
	require.Len(t, bps, 1)
	assert.Equal(t, uint32(1), bps[0].ID)

	name, ok, err := tree.GetInstanceNameFromBreakpoint(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "top.cpu.alu", name)

	ctx, err := tree.GetContextVariables(1, false)
	require.NoError(t, err)
	require.Len(t, ctx, 1)
	assert.Equal(t, "a", ctx[0].Name)
	assert.Equal(t, "5", ctx[0].Value)

	assert.Equal(t, []uint32{1}, tree.ExecutionBreakpointOrders())
}

func TestSrcMappingResolution(t *testing.T) {
	tree, err := Load(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	tree.SetSrcMapping(map[string]string{"build/alu.sv": "src/alu.sv"})
	assert.Equal(t, "build/alu.sv", tree.ResolveFilenameToDB("src/alu.sv"))
	assert.Equal(t, "src/alu.sv", tree.ResolveFilenameToClient("build/alu.sv"))
}
