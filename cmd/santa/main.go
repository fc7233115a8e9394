package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hpungsan/santa/internal/config"
	"github.com/hpungsan/santa/internal/logging"
	"github.com/hpungsan/santa/internal/mcp"
	"github.com/hpungsan/santa/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "wish": true, "wishes": true, "claim": true,
	"feed": true, "popups": true, "visit": true, "admin": true,
	"help": true,
}

// firstArg returns the first argument that is not a global flag.
func firstArg(args []string) string {
	for i := 1; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--remote":
			i++
		case strings.HasPrefix(a, "--remote="):
		default:
			return a
		}
	}
	return ""
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	arg := firstArg(args)
	if arg == "" {
		return false // No args → MCP server
	}
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	arg := firstArg(args)
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
         *
        /.\
       /..'\        SECRET SANTA
       /'.'\        wish board
      /.''.'\
      /.'.'.\
     /'.''.'.\
     ^^^[_]^^^

  Usage: santa <command> [options]
         santa --help

  MCP server mode requires piped input.`)
}

// baseDir is $SANTA_HOME, or ~/.santa.
func baseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("SANTA_HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".santa"), nil
}

// loadDotEnv reads .env from the working directory and the base dir.
// Existing environment variables win; missing files are fine.
func loadDotEnv(dir string) {
	for _, path := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before loading anything
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(newRuntime("", config.DefaultConfig(), logging.Nop()))
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fail("%v", err)
	}
	loadDotEnv(dir)

	cfg, err := config.Load(dir)
	if err != nil {
		fail("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fail("invalid config: %v", err)
	}
	log := logging.New(cfg.AppEnv)

	// CLI mode: known subcommand
	if isCLIMode(os.Args) {
		rt := newRuntime(dir, cfg, log)
		defer rt.Close()
		if err := newCLIApp(rt).Run(os.Args); err != nil {
			rt.Close()
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'santa --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
	}
	s, err := store.Open(context.Background(), cfg, dir)
	if err != nil {
		fail("failed to open wish store: %v", err)
	}
	defer s.Close()

	if err := mcp.Run(s, cfg, Version); err != nil {
		s.Close()
		fail("%v", err)
	}
}
