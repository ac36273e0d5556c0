package horizon

import "fmt"

// Cursor tracks the next index a component accepts. The zero value
// expects index 0.
type Cursor struct {
	next  int
	limit int
}

func NewCursor(limit int) Cursor {
	return Cursor{limit: limit}
}

// Next is the index the component expects now.
func (c *Cursor) Next() int { return c.next }

// Done reports whether every index of the horizon has been processed.
func (c *Cursor) Done() bool { return c.next >= c.limit }

// Expect fails unless kt is the next index in order.
func (c *Cursor) Expect(what string, kt int) error {
	if kt < 0 || kt >= c.limit {
		return fmt.Errorf("%w: %s index %d outside horizon [0, %d)", ErrSequence, what, kt, c.limit)
	}
	if kt != c.next {
		return fmt.Errorf("%w: %s index %d, expected %d", ErrSequence, what, kt, c.next)
	}
	return nil
}

// Advance marks kt as processed. Callers validate with Expect first.
func (c *Cursor) Advance() { c.next++ }

// Completed reports whether kt has already been processed.
func (c *Cursor) Completed(kt int) bool {
	return kt >= 0 && kt < c.next
}
