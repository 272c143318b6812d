package ir

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	LevelTrace slog.Level = slog.LevelDebug - 4
)

// Trace logs at the trace level through the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// WriteTable renders the instructions of a computation as a table.
func WriteTable(w io.Writer, c *Computation) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s (thread %s)", c.Name(), c.ExecutionThread()))
	t.AppendHeader(table.Row{"Name", "Opcode", "Shape", "Operands", "Users", "Attributes"})

	for _, inst := range c.Instructions() {
		name := inst.Name()
		if inst == c.Root() {
			name = "ROOT " + name
		}

		operands := make([]string, 0, inst.OperandCount())
		for _, op := range inst.operands {
			operands = append(operands, op.name)
		}
		if inst.opcode == Constant {
			operands = append(operands, inst.literal.String())
		}

		t.AppendRow(table.Row{
			name,
			inst.Opcode().String(),
			inst.Shape().String(),
			strings.Join(operands, ", "),
			inst.UserCount(),
			strings.TrimPrefix(inst.attributeString(), ", "),
		})
	}

	t.Render()
}
