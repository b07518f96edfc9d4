package dis

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
)

func TestDecode(t *testing.T) {
	mem := []byte{
		0, 0, 0, 0,
		byte(op.SLit), 0xfe,
		byte(op.Lit), 0x00, 0x01, 0x00, 0x00,
		byte(op.BrF), 0xff, 0xf7,
		byte(op.Trap), op.TrapPrintInt,
		byte(op.Halt),
	}
	instructions, err := Decode(mem, 4, len(mem)-4)
	require.NoError(t, err)
	require.Len(t, instructions, 5)

	assert.Equal(t, "SLIT", instructions[0].Name)
	assert.Equal(t, int32(-2), *instructions[0].Operand)
	assert.Equal(t, int32(65536), *instructions[1].Operand)
	assert.Equal(t, memory.Addr(11), instructions[2].Addr)
	assert.Equal(t, int32(-9), *instructions[2].Operand)
	// Relative to the byte after the operand.
	assert.Equal(t, memory.Addr(5), instructions[2].Target)
	assert.Nil(t, instructions[4].Operand)
	assert.Equal(t, 1, instructions[4].Size)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte{0xff}, 0, 1)
	assert.ErrorContains(t, err, "unknown opcode 0xff")

	instructions, err := Decode([]byte{byte(op.Drop), byte(op.Lit), 0, 0}, 0, 4)
	assert.ErrorContains(t, err, "truncated LIT")
	assert.Len(t, instructions, 1)

	_, err = Decode([]byte{0}, 0, 2)
	assert.Error(t, err)
}

func TestListing(t *testing.T) {
	mem := []byte{
		byte(op.Frame), 2,
		byte(op.LRef), 0,
		byte(op.LRef), 1,
		byte(op.Add),
		byte(op.Br), 0x00, 0x00,
		byte(op.Trap), op.TrapPrintNL,
		byte(op.Return),
	}
	var buf bytes.Buffer
	require.NoError(t, New(WithColor(false)).Listing(&buf, mem, 0, len(mem)))

	expected := strings.TrimSpace(`
+------+--------+---------+---------+
| ADDR | OPCODE | OPERAND |  INFO   |
+------+--------+---------+---------+
|    0 | FRAME  |       2 |         |
|    2 | LREF   |       0 |         |
|    4 | LREF   |       1 |         |
|    6 | ADD    |         |         |
|    7 | BR     |       0 | -> 10   |
|   10 | TRAP   |       5 | PRINTNL |
|   12 | RETURN |         |         |
+------+--------+---------+---------+
`)
	assert.Equal(t, expected+"\n", buf.String())
}
