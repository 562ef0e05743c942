package history

// Command is one reversible mutation of a document.
type Command interface {
	// Name is shown to the user, e.g. "Delete Objects".
	Name() string

	// Do applies the command. It either applies completely or returns an
	// error and leaves the document untouched.
	Do() error

	// Undo restores the state captured by the last successful Do.
	Undo() error
}

// Effective is implemented by commands that can tell whether their last Do
// changed anything. Commands that do not implement it are assumed to.
type Effective interface {
	HasEffect() bool
}

// Repeatable commands can be replayed against the current selection.
type Repeatable interface {
	Command

	// Repeat returns a new, not yet applied command doing the same thing to
	// whatever is selected now.
	Repeat() (Command, error)
}

// RepeatDelimiter is implemented by commands that end the current run of
// repeatable commands, such as selection changes.
type RepeatDelimiter interface {
	IsRepeatDelimiter() bool
}

func hasEffect(c Command) bool {
	if e, ok := c.(Effective); ok {
		return e.HasEffect()
	}
	return true
}

func isRepeatDelimiter(c Command) bool {
	d, ok := c.(RepeatDelimiter)
	return ok && d.IsRepeatDelimiter()
}
