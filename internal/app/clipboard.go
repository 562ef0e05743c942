package app

import (
	"github.com/atotto/clipboard"

	"github.com/kobzarvs/qmap/internal/document"
)

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// memoryClipboard stands in where no system clipboard is available, such as
// headless machines.
type memoryClipboard struct {
	text string
}

func (c *memoryClipboard) ReadAll() (string, error) { return c.text, nil }

func (c *memoryClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

func newClipboard() document.Clipboard {
	if clipboard.Unsupported {
		return &memoryClipboard{}
	}
	return systemClipboard{}
}
