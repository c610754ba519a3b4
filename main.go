package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/mcncl/gotoon/internal/config"
	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/generator"
	"github.com/mcncl/gotoon/internal/models"
	"github.com/mcncl/gotoon/internal/parser"
	"github.com/mcncl/gotoon/internal/server"
	"github.com/mcncl/gotoon/internal/validator"
)

// CLI defines the command-line interface
var CLI struct {
	Input       string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output      string `help:"Path to output TOON file. If not specified, writes to stdout." short:"o" type:"path"`
	Check       string `help:"Validate an existing TOON file and print diagnostics instead of converting." short:"c" type:"path"`
	Config      string `help:"Path to config file. Defaults to the nearest .gotoon.yml." type:"path"`
	MaxDepth    int    `help:"Maximum JSON nesting depth. Overrides the config file when set." short:"m"`
	KeyCasing   string `help:"Rewrite object keys: original, snake, camel, or pascal." short:"k"`
	NoValidate  bool   `help:"Skip self-validation of the generated TOON."`
	Serve       bool   `help:"Run the HTTP conversion service instead of converting once." short:"s"`
	Addr        string `help:"Listen address for --serve. Overrides the config file when set." short:"a"`
	Debug       bool   `help:"Enable debug logging." short:"d"`
	Version     bool   `help:"Show version information." short:"v"`
	Interactive bool   `help:"Run in interactive mode, allowing direct JSON input with Ctrl+D to process." short:"I"`
}

// Context holds the runtime context
type Context struct {
	Debug bool
	Cfg   *config.Config
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	parser := kong.Must(&CLI,
		kong.Name("gotoon"),
		kong.Description("A tool to convert JSON to TOON (Token-Oriented Object Notation)"),
		kong.UsageOnError(),
	)

	// With no arguments and a terminal on stdin, drop into interactive mode.
	if len(os.Args) == 1 {
		CLI.Interactive = true
	}

	if _, err := parser.Parse(os.Args[1:]); err != nil {
		// Usage is already shown by kong.UsageOnError()
		os.Exit(1)
	}

	if CLI.Version {
		fmt.Printf("gotoon version %s\n", Version)
		return
	}

	cfg, err := loadConfig()
	if err == nil {
		err = run(&Context{Debug: CLI.Debug, Cfg: cfg})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: gotoon --help\n")
		os.Exit(1)
	}
}

// loadConfig reads the config file and layers explicit CLI flags on top.
func loadConfig() (*config.Config, error) {
	path := CLI.Config
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg := config.NewConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, errors.NewInputError(fmt.Sprintf("config file '%s'", path), err)
		}
		cfg = loaded
		if CLI.Debug {
			fmt.Fprintf(os.Stderr, "using config file %s\n", path)
		}
	}
	if CLI.MaxDepth > 0 {
		cfg.MaxDepth = CLI.MaxDepth
	}
	if CLI.KeyCasing != "" {
		cfg.KeyCasing = CLI.KeyCasing
	}
	if CLI.NoValidate {
		cfg.Validate = false
	}
	if CLI.Addr != "" {
		cfg.Server.Addr = CLI.Addr
	}
	if CLI.Debug {
		cfg.Dev.Debug = true
	}
	return cfg, nil
}

// run executes the main program logic
func run(ctx *Context) error {
	if CLI.Serve {
		srv, err := server.New(ctx.Cfg)
		if err != nil {
			return err
		}
		return srv.ListenAndServe()
	}

	if CLI.Check != "" {
		return checkFile(CLI.Check)
	}

	// 1. Parse JSON input
	value, err := parseInput(ctx.Cfg)
	if err != nil {
		return err
	}

	// 2. Encode to TOON
	rename, err := ctx.Cfg.KeyRenamer()
	if err != nil {
		return errors.NewInputError("invalid key_casing setting", err)
	}
	gen := generator.NewGenerator()
	gen.MaxDepth = ctx.Cfg.MaxDepth
	gen.RenameKey = rename

	var toon string
	if ctx.Cfg.Validate {
		toon, err = gen.EncodeVerified(value)
	} else {
		toon, err = gen.Encode(value)
	}
	if err != nil {
		return err
	}

	// 3. Output the result
	return writeOutput(toon)
}

// checkFile validates an existing TOON document and prints every diagnostic.
func checkFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewInputError(fmt.Sprintf("file '%s' not found", path), errors.ErrFileNotFound)
		}
		return errors.NewInputError(fmt.Sprintf("failed to read '%s'", path), err)
	}
	ok, diags := validator.NewValidator().Validate(string(data))
	if ok {
		fmt.Fprintf(os.Stderr, "%s: valid TOON\n", path)
		return nil
	}
	for _, d := range diags {
		fmt.Printf("%s:%s\n", path, d)
	}
	return errors.NewValidateError(fmt.Sprintf("found %d problem(s) in '%s'", len(diags), path), nil)
}

// parseInput reads JSON from file or stdin
func parseInput(cfg *config.Config) (models.Value, error) {
	if CLI.Input != "" {
		return parser.ParseFile(CLI.Input, cfg.MaxDepth)
	}

	stdinInfo, err := os.Stdin.Stat()
	if err != nil {
		return models.Value{}, errors.NewInputError("failed to access stdin", err)
	}

	if (stdinInfo.Mode() & os.ModeCharDevice) != 0 {
		// Terminal is interactive (not piped)
		if CLI.Interactive {
			return readInteractiveInput(cfg)
		}
		return models.Value{}, errors.NewInputError("no input provided", errors.ErrNoInput)
	}

	// Read from stdin (piped input)
	jsonData, err := io.ReadAll(os.Stdin)
	if err != nil {
		return models.Value{}, errors.NewInputError("failed to read from stdin", err)
	}

	if len(jsonData) == 0 {
		return models.Value{}, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}

	return parser.ParseString(string(jsonData), cfg.MaxDepth)
}

// writeOutput writes TOON text to file or stdout
func writeOutput(toon string) error {
	if CLI.Output != "" {
		err := os.WriteFile(CLI.Output, []byte(toon+"\n"), 0644)
		if err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", CLI.Output), err)
		}
		fmt.Fprintf(os.Stderr, "TOON output written to %s\n", CLI.Output)
		return nil
	}

	_, err := fmt.Println(strings.TrimRight(toon, "\n"))
	if err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// readInteractiveInput provides an interactive mode for users to paste JSON
// and signal completion with Ctrl+D (EOF)
func readInteractiveInput(cfg *config.Config) (models.Value, error) {
	fmt.Fprintln(os.Stderr, "gotoon Interactive Mode")
	fmt.Fprintln(os.Stderr, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(os.Stdin)
	var jsonBuilder strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.Value{}, errors.NewInputError("error reading input", err)
		}
		jsonBuilder.WriteString(line)
	}

	jsonData := jsonBuilder.String()
	if len(jsonData) == 0 {
		return models.Value{}, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(os.Stderr, "\nProcessing JSON...")
	return parser.ParseString(jsonData, cfg.MaxDepth)
}
