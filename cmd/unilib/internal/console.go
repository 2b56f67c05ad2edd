package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
)

// ConsoleWriter renders zerolog's JSON events as coloured lines. Command
// events are printed as "+ <command>".
type ConsoleWriter struct {
	out      io.Writer
	colorize colorstring.Colorize
	buffer   strings.Builder
	lock     sync.Mutex
}

func NewConsoleWriter(out io.Writer, noColor bool) *ConsoleWriter {
	return &ConsoleWriter{
		out: out,
		colorize: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: noColor,
		},
	}
}

func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	err = d.Decode(&evt)
	if err != nil {
		return n, eris.Wrapf(err, "cannot decode event: %s", p)
	}

	var color string
	isCommand, _ := evt["command"].(bool)
	switch {
	case isCommand && evt["level"] == "debug":
		color = "[dark_gray]"
	case isCommand:
		color = "[cyan]"
	case evt["level"] == "fatal", evt["level"] == "error":
		color = "[red]"
	case evt["level"] == "warn":
		color = "[yellow]"
	case evt["level"] == "debug", evt["level"] == "trace":
		color = "[blue]"
	default:
		color = "[green]"
	}

	// Only the markup goes through colorstring; messages may contain
	// bracketed words such as [red] that must be printed as is.
	w.buffer.Reset()
	w.buffer.WriteString(w.colorize.Color(color))
	if isCommand {
		w.buffer.WriteString("+ ")
	}
	if evt["level"] == "error" || evt["level"] == "fatal" {
		w.buffer.WriteString("Error: ")
	}

	msg, _ := evt["message"].(string)
	w.buffer.WriteString(msg)

	if errorDetails, ok := evt["error"]; ok {
		w.buffer.WriteString("\n")
		w.buffer.WriteString(fmt.Sprint(errorDetails))
	}

	w.buffer.WriteString(w.colorize.Color("[reset]"))
	w.buffer.WriteString("\n")
	if _, err := io.WriteString(w.out, w.buffer.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}
