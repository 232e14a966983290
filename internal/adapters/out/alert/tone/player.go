package tone

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"dispatch/internal/core/ports"
)

var _ ports.TonePlayer = (*Player)(nil)

// Sink outputs a rendered WAV clip.
type Sink interface {
	Play(ctx context.Context, wav []byte) error
}

// Player plays one pre-rendered beep through a Sink. Overlapping calls are
// serialized.
type Player struct {
	wav  []byte
	sink Sink
	mu   sync.Mutex
}

func NewPlayer(sink Sink) *Player {
	return &Player{wav: Synthesize(Frequency, Duration, SampleRate), sink: sink}
}

func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink.Play(ctx, p.wav)
}

// ExecSink pipes the clip into an external player reading WAV on stdin,
// such as "aplay -q -".
type ExecSink struct {
	Command string
	Args    []string
}

func (s ExecSink) Play(ctx context.Context, wav []byte) error {
	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	cmd.Stdin = bytes.NewReader(wav)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", s.Command, err, bytes.TrimSpace(out))
	}
	return nil
}

// BellSink rings the terminal bell instead of playing audio.
type BellSink struct {
	W io.Writer
}

func (s BellSink) Play(_ context.Context, _ []byte) error {
	_, err := io.WriteString(s.W, "\a")
	return err
}

// NewSink returns an ExecSink for command when it is installed and a
// BellSink on bell otherwise.
func NewSink(command string, bell io.Writer, logger *slog.Logger) Sink {
	if command != "" {
		if path, err := exec.LookPath(command); err == nil {
			args := []string{"-"}
			if command == "aplay" {
				args = []string{"-q", "-"}
			}
			return ExecSink{Command: path, Args: args}
		}
		logger.Warn("tone player not found, falling back to terminal bell", "command", command)
	}
	return BellSink{W: bell}
}
