// oosh CLI - runs oosh scripts and the interactive REPL
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/oosh/compiler"
	"github.com/chazu/oosh/manifest"
	"github.com/chazu/oosh/vm"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("oosh")

// Exit status for scripts that fail to parse.
const exitCompileError = 2

// pathList collects a repeatable flag.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

// options are the parsed command line.
type options struct {
	interactive bool
	verbose     bool
	dbPath      string
	imagePath   string
	saveImage   string
	libs        pathList
	noManifest  bool
	noRC        bool
	script      string
	args        []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("oosh", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.interactive, "i", false, "Start interactive REPL")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite database for persisted objects")
	fs.StringVar(&opts.imagePath, "image", "", "Load an object image before running")
	fs.StringVar(&opts.saveImage, "save-image", "", "Write an object image after running")
	fs.Var(&opts.libs, "I", "Add a library directory (repeatable)")
	fs.BoolVar(&opts.noManifest, "no-manifest", false, "Ignore oosh.toml")
	fs.BoolVar(&opts.noRC, "no-rc", false, "Skip loading ~/.ooshrc")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: oosh [options] [script [args...]]\n\n")
		fmt.Fprintf(stderr, "Runs an oosh script, or starts the REPL when no script is given.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  oosh                          # Start REPL\n")
		fmt.Fprintf(stderr, "  oosh main.oosh a b            # Run a script with arguments\n")
		fmt.Fprintf(stderr, "  oosh -db state.db main.oosh   # Persist objects between runs\n")
		fmt.Fprintf(stderr, "  oosh -I ./vendor main.oosh    # Extra library directory\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		opts.script = rest[0]
		opts.args = rest[1:]
	}
	return opts, nil
}

// run executes the CLI and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return exitCompileError
	}

	var m *manifest.Manifest
	if !opts.noManifest {
		start := "."
		if opts.script != "" {
			start = filepath.Dir(opts.script)
		}
		if m, err = manifest.FindAndLoad(start); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	configureLogging(opts, m)

	if opts.script == "" && m != nil && !opts.interactive {
		opts.script = m.EntryPath()
	}

	// The REPL shows uncaught exceptions inline, so they go to a buffer.
	repl := opts.interactive || opts.script == ""
	var replErr bytes.Buffer
	cfg := vmConfig(opts, m, stdout, stderr)
	if repl {
		cfg.Stderr = &replErr
		// Reports the REPL never showed (a failing script or rc file) still reach stderr.
		defer func() {
			if replErr.Len() > 0 {
				stderr.Write(replErr.Bytes())
			}
		}()
	}

	v, err := vm.NewVM(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := v.Close(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}()

	if image := imagePath(opts, m); image != "" {
		if err := v.LoadImage(image); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	path, err := searchPath(opts, m)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	sess := compiler.NewSession(v, path)
	defineArgs(sess, opts)

	if !opts.noRC {
		if code := loadRC(sess, stderr); code != 0 {
			return code
		}
	}

	code := 0
	if opts.script != "" {
		code = exitStatus(sess.RunFile(opts.script), stderr)
	}
	if repl && code == 0 {
		if err := runREPL(sess, &replErr); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			code = 1
		}
	}

	if opts.saveImage != "" && code != exitCompileError {
		if err := v.SaveImage(opts.saveImage); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return code
}

// exitStatus maps the result of running a script to a process status.
func exitStatus(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var pe *compiler.ParseError
	if errors.As(err, &pe) {
		fmt.Fprintln(stderr, pe.Error())
		return exitCompileError
	}
	var exit *vm.ExitError
	if errors.As(err, &exit) {
		// the exception has already been reported by its handler
		return exit.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

// configureLogging sets the log verbosity: the manifest's [log] section,
// raised by -v and by OOSH_DEBUG.
func configureLogging(opts *options, m *manifest.Manifest) {
	verbosity := 0
	var path *string
	if m != nil {
		verbosity = m.Log.Verbosity
		if m.Log.File != "" {
			file := m.Log.File
			if !filepath.IsAbs(file) {
				file = filepath.Join(m.Dir, file)
			}
			path = &file
		}
	}
	if opts.verbose && verbosity < 1 {
		verbosity = 1
	}
	if debug := os.Getenv("OOSH_DEBUG"); debug != "" {
		n, err := strconv.Atoi(debug)
		if err != nil {
			n = 2
		}
		if n > verbosity {
			verbosity = n
		}
	}
	commonlog.Configure(verbosity, path)
}

// vmConfig layers the manifest's [runtime] section and the flags over the
// environment defaults.
func vmConfig(opts *options, m *manifest.Manifest, stdout, stderr io.Writer) *vm.Config {
	cfg := vm.DefaultConfig()
	cfg.Stdout = stdout
	cfg.Stderr = stderr
	if m != nil {
		if db := m.DBPath(); db != "" {
			cfg.DBPath = db
		}
		if m.Runtime.MaxDepth != 0 {
			cfg.MaxDepth = m.Runtime.MaxDepth
		}
		if m.Runtime.Shell != "" {
			cfg.Shell = m.Runtime.Shell
		}
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	return cfg
}

// imagePath returns the image to load: the -image flag, or the manifest's
// image when that file exists.
func imagePath(opts *options, m *manifest.Manifest) string {
	if opts.imagePath != "" {
		return opts.imagePath
	}
	if m != nil {
		if p := m.ImagePath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// searchPath builds the library search path: -I directories first, then the
// manifest's library paths (or ./lib without a manifest). Manifest
// dependencies are mounted under their groups.
func searchPath(opts *options, m *manifest.Manifest) (*manifest.SearchPath, error) {
	dirs := append([]string(nil), opts.libs...)
	if m != nil {
		dirs = append(dirs, m.LibraryPaths()...)
	} else {
		dirs = append(dirs, "lib")
	}
	sp := manifest.NewSearchPath(dirs...)
	if m != nil {
		if err := manifest.NewResolver(m).MountAll(sp); err != nil {
			return nil, err
		}
	}
	log.Debugf("library path: %v", sp.Dirs())
	return sp, nil
}

// defineArgs exposes the script name and its arguments as top-level
// variables: script, argc, args (space separated) and arg1..argN.
func defineArgs(sess *compiler.Session, opts *options) {
	sess.Define("script", opts.script)
	sess.Define("argc", strconv.Itoa(len(opts.args)))
	sess.Define("args", strings.Join(opts.args, " "))
	for i, a := range opts.args {
		sess.Define("arg"+strconv.Itoa(i+1), a)
	}
}

// loadRC runs ~/.ooshrc if it exists.
func loadRC(sess *compiler.Session, stderr io.Writer) int {
	home, err := os.UserHomeDir()
	if err != nil {
		return 0
	}
	rcPath := filepath.Join(home, ".ooshrc")
	if _, err := os.Stat(rcPath); err != nil {
		return 0
	}
	log.Infof("loading %s", rcPath)
	return exitStatus(sess.RunFile(rcPath), stderr)
}
