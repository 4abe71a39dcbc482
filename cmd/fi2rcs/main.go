// Command fi2rcs reads a fast-import stream on standard input and
// replays it into a tree of RCS master files rooted at the current
// directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	fqme "gitlab.com/esr/fqme"

	"gitlab.com/esr/fi2rcs/fault"
	"gitlab.com/esr/fi2rcs/importer"
	"gitlab.com/esr/fi2rcs/logtag"
	"gitlab.com/esr/fi2rcs/rcsdriver"
)

const version = "fi2rcs 1.0"

// verboseCount implements repeatable -v via flag.Value, since the
// stdlib flag package has no built-in counting flag type. Grounded on
// the teacher's own small-tool binaries (mapper/repomapper.go,
// tool/repotool.go), which parse flags with the stdlib package rather
// than a framework.
type verboseCount int

func (v *verboseCount) String() string { return fmt.Sprintf("%d", int(*v)) }
func (v *verboseCount) IsBoolFlag() bool { return true }
func (v *verboseCount) Set(string) error {
	*v++
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var verbose verboseCount
	plain := flag.Bool("p", false, "plain mode: raw commit message, no RFC-822 envelope")
	locked := flag.Bool("l", false, "final checkout, locked")
	unlocked := flag.Bool("u", false, "final checkout, unlocked")
	showVersion := flag.Bool("V", false, "print version and exit")
	showUsage := flag.Bool("?", false, "print usage and exit")
	flag.Var(&verbose, "v", "increase verbosity (repeatable)")
	flag.Usage = usage
	flag.Parse()

	if *showUsage {
		usage()
		return 0
	}
	if *showVersion {
		fmt.Println(version)
		return 0
	}
	if *locked && *unlocked {
		fmt.Fprintln(os.Stderr, "fi2rcs: -l and -u are mutually exclusive")
		return 1
	}

	log := logtag.New(int(verbose))
	defer log.Baton.Close()

	// RCS stamps every check-in with the invoking OS user itself; this is
	// purely a diagnostic so -v output says who that will be.
	if name, email, err := fqme.WhoAmI(); err == nil {
		log.Logf(logtag.Ops, "running as %s <%s>", name, email)
	}

	checkout := rcsdriver.FinalNeither
	switch {
	case *locked:
		checkout = rcsdriver.FinalLocked
	case *unlocked:
		checkout = rcsdriver.FinalUnlocked
	}

	invocationDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fi2rcs: %v\n", err)
		return 1
	}
	pid := os.Getpid()

	scratch, err := importer.NewScratch(invocationDir, pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fi2rcs: %v\n", err)
		return 1
	}
	defer scratch.Teardown()

	workspace, err := rcsdriver.NewWorkspace(invocationDir, pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fi2rcs: %v\n", err)
		return 1
	}
	defer workspace.Teardown()

	// On interrupt, run the same teardown the normal exit paths do and
	// stop (spec.md §5's cancellation policy: abort at the next I/O
	// boundary, leave a pre-rename destination untouched).
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		scratch.Teardown()
		workspace.Teardown()
		os.Exit(1)
	}()

	return convert(scratch, workspace, log, rcsdriver.Options{
		RoundTrip: !*plain,
		Checkout:  checkout,
	})
}

func convert(scratch *importer.Scratch, workspace *rcsdriver.Workspace, log *logtag.Logger, opts rcsdriver.Options) (code int) {
	defer func() {
		if r := recover(); r != nil {
			if fe := fault.Catch(r); fe != nil {
				fmt.Fprintf(os.Stderr, "fi2rcs: %v\n", fe)
				code = 1
				return
			}
			panic(r)
		}
	}()

	repo := importer.NewRepository(scratch)
	lx := importer.NewLexer(os.Stdin, "<stdin>")
	importer.Parse(lx, repo, log)

	shell := rcsdriver.NewShell(log, workspace.Root)
	engine := rcsdriver.NewEngine(repo, workspace, shell, log, opts)
	engine.Replay()

	if err := workspace.Commit(); err != nil {
		fmt.Fprintf(os.Stderr, "fi2rcs: committing output tree: %v\n", err)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: fi2rcs [-v...] [-p] [-l | -u] [-V] < stream

  -v  increase verbosity (repeatable)
  -p  plain mode: raw commit message, no RFC-822 envelope
  -l  final checkout, locked
  -u  final checkout, unlocked
  -V  print version and exit
`)
}
