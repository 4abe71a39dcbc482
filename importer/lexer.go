package importer

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"gitlab.com/esr/fi2rcs/fault"
)

// Lexer is the stream lexer and data-block reader from spec.md §4.1: a
// line-oriented reader over an octet stream with one-line pushback and a
// ReadData operation recognizing counted and delimited payload headers.
// Grounded on reposurgeon's StreamParser (read/readline/pushback/
// fiReadData in surgeon/reposurgeon.go).
type Lexer struct {
	r          *bufio.Reader
	source     string
	line       int
	haspushed  bool
	pushedLine []byte
}

// NewLexer wraps r for line-oriented reading. source names the input for
// diagnostics (e.g. "<stdin>").
func NewLexer(r io.Reader, source string) *Lexer {
	return &Lexer{r: bufio.NewReaderSize(r, 64*1024), source: source}
}

// Line reports the current 1-based line number for diagnostics.
func (lx *Lexer) Line() int { return lx.line }

func (lx *Lexer) errorf(format string, args ...interface{}) {
	panic(fault.Throw(fault.Parse, lx.line, format, args...))
}

// ReadLine returns the next newline-terminated line, or nil at EOF. The
// returned slice includes the trailing '\n' when present.
func (lx *Lexer) ReadLine() []byte {
	if lx.haspushed {
		lx.haspushed = false
		line := lx.pushedLine
		lx.pushedLine = nil
		lx.line++
		return line
	}
	line, err := lx.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF {
			if len(line) == 0 {
				return nil
			}
			// Unterminated last line: treat it as a full line.
		} else {
			panic(fault.Throw(fault.IO, lx.line, "reading %s: %v", lx.source, err))
		}
	}
	lx.line++
	return line
}

// Pushback returns one line to the front of the stream, to be re-read by
// the next ReadLine call. Only one line of pushback is supported at a
// time, matching spec.md §4.1.
func (lx *Lexer) Pushback(line []byte) {
	if lx.haspushed {
		panic(fault.Throw(fault.Parse, lx.line, "internal error: double pushback"))
	}
	lx.haspushed = true
	lx.pushedLine = line
	lx.line--
}

// ReadN reads exactly n raw bytes, which may contain embedded newlines;
// the line counter is advanced by the number of newlines seen, matching
// the teacher's treatment of counted data blocks.
func (lx *Lexer) ReadN(n int64) []byte {
	buf := make([]byte, n)
	if _, err := io.ReadFull(lx.r, buf); err != nil {
		panic(fault.Throw(fault.Parse, lx.line, "unexpected EOF reading %d bytes", n))
	}
	lx.line += bytes.Count(buf, []byte("\n"))
	return buf
}

// ReadData implements the two payload encodings of spec.md §4.1: counted
// ("data <N>") and delimited ("data <<DELIM"). header is the already-read
// "data..." line. The payload is written to sink and byte count returned.
func (lx *Lexer) ReadData(header []byte, sink io.Writer) int64 {
	text := string(bytes.TrimRight(header, "\n"))
	var written int64
	switch {
	case strings.HasPrefix(text, "data <<"):
		delim := text[len("data <<"):]
		for {
			line := lx.ReadLine()
			if line == nil {
				lx.errorf("EOF while reading delimited data block (delimiter %q never seen)", delim)
			}
			if string(bytes.TrimRight(line, "\n")) == delim {
				break
			}
			n, err := sink.Write(line)
			if err != nil {
				panic(fault.Throw(fault.IO, lx.line, "writing spill data: %v", err))
			}
			written += int64(n)
		}
	case strings.HasPrefix(text, "data "):
		count, err := strconv.ParseInt(strings.TrimSpace(text[len("data "):]), 10, 64)
		if err != nil {
			lx.errorf("bad byte count in data header %q", text)
		}
		buf := lx.ReadN(count)
		n, werr := sink.Write(buf)
		if werr != nil {
			panic(fault.Throw(fault.IO, lx.line, "writing spill data: %v", werr))
		}
		written = int64(n)
	default:
		lx.errorf("malformed data header %q", text)
	}
	// Tolerate a single optional trailing newline some exporters emit
	// after the payload; push it back if it's anything else.
	trailer := lx.ReadLine()
	if trailer != nil && string(trailer) != "\n" {
		lx.Pushback(trailer)
	}
	return written
}

// readDataBuffered is a convenience for short in-memory payloads (commit
// comments, tag bodies) where spilling to disk would be wasteful.
func (lx *Lexer) readDataBuffered(header []byte) string {
	var buf bytes.Buffer
	lx.ReadData(header, &buf)
	return buf.String()
}
