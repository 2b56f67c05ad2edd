package internal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

func TestConsoleWriter(t *testing.T) {
	tests := []struct {
		name string
		log  func(zerolog.Logger)
		want string
	}{
		{"info", func(l zerolog.Logger) { l.Info().Msg("Building oniguruma ...") }, "Building oniguruma ...\n"},
		{"command", func(l zerolog.Logger) { l.Info().Bool("command", true).Str("dir", "/x").Msg("make") }, "+ make\n"},
		{"error", func(l zerolog.Logger) {
			l.Error().Err(eris.New("boom")).Msg("unilib build failed")
		}, "Error: unilib build failed\nboom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zerolog.ErrorMarshalFunc = func(err error) interface{} { return eris.ToString(err, false) }
			var buf bytes.Buffer
			tt.log(zerolog.New(NewConsoleWriter(&buf, true)))
			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConsoleWriterColors(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(NewConsoleWriter(&buf, false))
	logger.Warn().Msg("careful [not a color]")
	got := buf.String()
	if !strings.HasPrefix(got, "\033[33m") || !strings.Contains(got, "careful [not a color]") || !strings.HasSuffix(got, "\033[0m\n") {
		t.Errorf("output = %q", got)
	}
}

func TestConsoleWriterKeepsMarkupInText(t *testing.T) {
	zerolog.ErrorMarshalFunc = func(err error) interface{} { return eris.ToString(err, false) }
	tests := []struct {
		name    string
		noColor bool
		prefix  string
		suffix  string
	}{
		{"no color", true, "+ ", "\n"},
		{"color", false, "\033[36m+ ", "\033[0m\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(NewConsoleWriter(&buf, tt.noColor))
			logger.Info().Bool("command", true).Msg("echo [red]x[reset]")
			logger.Error().Err(eris.New("bad [bold]input")).Msg("[green]failed")

			lines := strings.SplitAfter(buf.String(), "\n")
			if got, want := lines[0], tt.prefix+"echo [red]x[reset]"+tt.suffix; got != want {
				t.Errorf("command line = %q, want %q", got, want)
			}
			if rest := strings.Join(lines[1:], ""); !strings.Contains(rest, "Error: [green]failed\nbad [bold]input") {
				t.Errorf("error output = %q", rest)
			}
		})
	}
}

func TestConsoleWriterRejectsGarbage(t *testing.T) {
	if _, err := NewConsoleWriter(&bytes.Buffer{}, true).Write([]byte("not json")); err == nil {
		t.Error("Write accepted a non-JSON event")
	}
}
