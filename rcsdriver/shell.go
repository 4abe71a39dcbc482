package rcsdriver

import (
	"bytes"
	"os"
	"os/exec"

	shlex "github.com/anmitsu/go-shlex"
	shellquote "github.com/kballard/go-shellquote"

	"gitlab.com/esr/fi2rcs/fault"
	"gitlab.com/esr/fi2rcs/logtag"
)

// Shell runs the external RCS tools synchronously, per spec.md §5: each
// command is spawned, awaited, and its exit status inspected; non-zero
// exit or signal termination is an External error that aborts the run.
type Shell struct {
	log *logtag.Logger
	dir string
}

// NewShell builds a Shell that runs commands with dir as their working
// directory.
func NewShell(log *logtag.Logger, dir string) *Shell {
	return &Shell{log: log, dir: dir}
}

// Run executes argv in the shell's default directory. See RunIn.
func (s *Shell) Run(argv ...string) {
	s.RunIn(s.dir, argv...)
}

// RunIn executes argv with dir as the working directory, echoing the
// command line when command tracing is enabled and forwarding the
// child's stdout/stderr in that case, or discarding them otherwise. RCS
// tools resolve a bare filename against ./RCS/<name>,v in the working
// directory, so dir is normally the directory holding the file being
// operated on, not the workspace root.
func (s *Shell) RunIn(dir string, argv ...string) {
	s.echo(argv)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	if s.log.Enabled(logtag.Commands) {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		panic(fault.Throw(fault.External, 0, "%s: %v", shellquote.Join(argv...), err))
	}
}

// Capture executes argv in the shell's default directory and returns its
// stdout. See CaptureIn.
func (s *Shell) Capture(argv ...string) []byte {
	return s.CaptureIn(s.dir, argv...)
}

// CaptureIn is RunIn with stdout captured instead of forwarded, used for
// `co -p` to pull a revision's content without writing a working file.
func (s *Shell) CaptureIn(dir string, argv ...string) []byte {
	s.echo(argv)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if s.log.Enabled(logtag.Commands) {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		panic(fault.Throw(fault.External, 0, "%s: %v", shellquote.Join(argv...), err))
	}
	return out.Bytes()
}

// RunLine splits line under shell-quoting rules and runs it in the
// shell's default directory. See RunLineIn.
func (s *Shell) RunLine(line string) {
	s.RunLineIn(s.dir, line)
}

// RunLineIn splits line under shell-quoting rules (so a single-quoted
// check-in comment survives as one token) and runs the result in dir,
// grounded on reposurgeon's own shlex.Split(dcmd, true) pattern for
// turning a constructed command string into an argv before exec'ing it
// directly — no shell is actually invoked.
func (s *Shell) RunLineIn(dir, line string) {
	argv, err := shlex.Split(line, true)
	if err != nil {
		panic(fault.Throw(fault.Parse, 0, "malformed command line %q: %v", line, err))
	}
	s.RunIn(dir, argv...)
}

func (s *Shell) echo(argv []string) {
	s.log.Logf(logtag.Commands, "+ %s", shellquote.Join(argv...))
}
