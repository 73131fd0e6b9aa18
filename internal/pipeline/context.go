package pipeline

import (
	"fmt"

	"github.com/sanjuz-cas/SURF/internal/models"
)

// Entry is one step's output in the run ledger.
type Entry struct {
	Index  int               `json:"index"`
	Name   string            `json:"name"`
	Role   string            `json:"role"`
	Output models.StepOutput `json:"output"`
}

// RunContext is the append-only record of step outputs for one run. Once an
// entry is written it is never mutated; later steps only read. Each run owns
// its own instance and it is discarded at run end; persistence of final
// results is the store's job.
type RunContext struct {
	entries []Entry
}

func NewRunContext() *RunContext {
	return &RunContext{}
}

// Append records the next step's output. Entries are indexed in execution
// order; appending out of order is a programming error.
func (c *RunContext) Append(name, role string, out models.StepOutput) Entry {
	entry := Entry{Index: len(c.entries), Name: name, Role: role, Output: out}
	c.entries = append(c.entries, entry)
	return entry
}

// Len reports how many steps have completed.
func (c *RunContext) Len() int { return len(c.entries) }

// ByIndex returns the output of step i.
func (c *RunContext) ByIndex(i int) (Entry, bool) {
	if i < 0 || i >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[i], true
}

// ByName returns the output of the named step.
func (c *RunContext) ByName(name string) (Entry, bool) {
	for _, e := range c.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the ledger for diagnostics.
func (c *RunContext) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Summary renders one line per completed stage for operator output.
func (c *RunContext) Summary() []string {
	lines := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		lines = append(lines, fmt.Sprintf("%d. %s (%s): %s", e.Index+1, e.Name, e.Role, e.Output.Status))
	}
	return lines
}
