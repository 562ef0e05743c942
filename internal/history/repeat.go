package history

// RepeatBuffer holds the most recent contiguous run of repeatable commands.
type RepeatBuffer struct {
	cmds        []Repeatable
	clearOnNext bool
}

// Push appends c to the run, starting a new run first if the previous one
// was ended by ClearOnNextPush.
func (r *RepeatBuffer) Push(c Repeatable) {
	if r.clearOnNext {
		r.cmds = nil
		r.clearOnNext = false
	}
	r.cmds = append(r.cmds, c)
}

// ClearOnNextPush ends the current run. The run stays repeatable until the
// next repeatable command is pushed.
func (r *RepeatBuffer) ClearOnNextPush() {
	r.clearOnNext = true
}

func (r *RepeatBuffer) Clear() {
	r.cmds = nil
	r.clearOnNext = false
}

func (r *RepeatBuffer) Len() int {
	return len(r.cmds)
}

// Commands returns a copy of the current run.
func (r *RepeatBuffer) Commands() []Repeatable {
	out := make([]Repeatable, len(r.cmds))
	copy(out, r.cmds)
	return out
}
