// Package baton implements the progress-reporting machinery used by
// fi2rcs. It is a trimmed adaptation of reposurgeon's baton: a
// serializing goroutine that owns the terminal status line, a twirly
// indefinite spinner, and a percentage-complete counter for the replay
// pass (the parse pass has no known total, so it shows only the spinner).
package baton

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh/terminal"
)

type msgType uint8

const (
	logMsg msgType = iota
	progressMsg
	syncMsg
)

type message struct {
	ty  msgType
	str []byte
}

const twirlInterval = 100 * time.Millisecond
const progressInterval = 1 * time.Second

// Baton serializes progress and log output to a stream, overwriting the
// status line in place when attached to a terminal and falling back to
// plain line-at-a-time output otherwise.
type Baton struct {
	enabled bool
	stream  *os.File
	channel chan message
	start   time.Time
	twirly  twirly
	prog    progress
}

type twirly struct {
	sync.RWMutex
	lastupdate time.Time
	count      uint8
}

type progress struct {
	sync.RWMutex
	start      time.Time
	lastupdate time.Time
	tag        string
	count      uint64
	expected   uint64
}

// New creates a Baton attached to stdout. verbose gates whether the twirly
// spinner is shown at all; it is normally whether the -v flag was given at
// least once. New additionally requires stdout to be a terminal.
func New(verbose bool) *Baton {
	b := new(Baton)
	b.start = time.Now()
	b.stream = os.Stdout
	interactive := terminal.IsTerminal(int(os.Stdout.Fd()))
	b.enabled = verbose && interactive
	b.channel = make(chan message)
	go func() {
		var lastProgress []byte
		for msg := range b.channel {
			switch msg.ty {
			case syncMsg:
				b.channel <- msg
			case logMsg:
				if b.enabled {
					b.stream.WriteString("\r\033[K")
					b.stream.Write(msg.str)
					if !bytes.HasSuffix(msg.str, []byte{'\n'}) {
						b.stream.Write([]byte{'\n'})
					}
					b.stream.Write(lastProgress)
				} else {
					b.stream.Write(msg.str)
					if !bytes.HasSuffix(msg.str, []byte{'\n'}) {
						b.stream.Write([]byte{'\n'})
					}
				}
			case progressMsg:
				if b.enabled {
					b.stream.WriteString("\r\033[K")
					b.stream.Write(msg.str)
					lastProgress = msg.str
				}
			}
		}
	}()
	return b
}

// PrintLog emits a one-shot log line, safe to call whether or not a
// terminal status line is currently displayed.
func (b *Baton) PrintLog(s string) {
	if b == nil {
		return
	}
	b.channel <- message{logMsg, []byte(s)}
}

// Write lets Baton itself serve as an io.Writer; each write is emitted as
// one log line via PrintLog.
func (b *Baton) Write(p []byte) (int, error) {
	b.PrintLog(string(p))
	return len(p), nil
}

// Twirl advances the indefinite spinner, rate-limited so it doesn't flood
// the terminal on tight loops (one per fileop, one per parsed line).
func (b *Baton) Twirl() {
	if b == nil || !b.enabled {
		return
	}
	b.twirly.Lock()
	if time.Since(b.twirly.lastupdate) < twirlInterval {
		b.twirly.Unlock()
		return
	}
	b.twirly.count = (b.twirly.count + 1) % 4
	b.twirly.lastupdate = time.Now()
	b.twirly.Unlock()
	b.render()
}

// StartProgress begins a progress phase, such as "parse fast-import
// stream" or "replay commits". An expected total of 0 means the total is
// unknown, and no percentage is rendered for that phase.
func (b *Baton) StartProgress(tag string, expected uint64) {
	if b == nil {
		return
	}
	b.prog.Lock()
	defer b.prog.Unlock()
	b.prog.start = time.Now()
	b.prog.lastupdate = b.prog.start
	b.prog.tag = tag
	b.prog.count = 0
	b.prog.expected = expected
}

// PercentProgress reports the current count within the active phase,
// rate-limited to once per second except for the final report.
func (b *Baton) PercentProgress(count uint64) {
	if b == nil || !b.enabled {
		return
	}
	b.prog.Lock()
	if time.Since(b.prog.lastupdate) < progressInterval && count != b.prog.expected {
		b.prog.Unlock()
		return
	}
	b.prog.count = count
	b.prog.lastupdate = time.Now()
	b.prog.Unlock()
	b.render()
}

// EndProgress closes out the active phase.
func (b *Baton) EndProgress() {
	if b == nil {
		return
	}
	b.prog.Lock()
	b.prog.count = b.prog.expected
	b.prog.Unlock()
	if b.enabled {
		b.render()
	}
	b.prog.Lock()
	b.prog.tag = ""
	b.prog.count = 0
	b.prog.expected = 0
	b.prog.Unlock()
	b.channel <- message{progressMsg, nil}
}

func (b *Baton) render() {
	var buf bytes.Buffer
	b.prog.RLock()
	if b.prog.expected > 0 {
		frac := 100 * float64(b.prog.count) / float64(b.prog.expected)
		elapsed := time.Since(b.prog.start).Round(time.Second)
		fmt.Fprintf(&buf, "%s %.1f%% %d/%d (%v)", b.prog.tag, frac, b.prog.count, b.prog.expected, elapsed)
	}
	b.prog.RUnlock()
	b.twirly.RLock()
	if !math.IsNaN(float64(b.twirly.count)) {
		buf.WriteByte(' ')
		buf.WriteByte("-\\|/"[b.twirly.count])
	}
	b.twirly.RUnlock()
	b.channel <- message{progressMsg, append([]byte(nil), buf.Bytes()...)}
}

// Close shuts the baton down, leaving the terminal on a fresh line.
func (b *Baton) Close() {
	if b == nil {
		return
	}
	if b.enabled {
		b.stream.WriteString("\r\033[K")
	}
}

// Screenwidth reports the current terminal width, defaulting to 80 when
// not attached to a terminal.
func Screenwidth() int {
	width := 80
	if terminal.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := terminal.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	return width
}
