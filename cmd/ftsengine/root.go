package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryogrid/ftsengine/internal/config"
	fctx "github.com/ryogrid/ftsengine/internal/context"
	"github.com/ryogrid/ftsengine/internal/debug"
)

var (
	modeAlone  bool
	modeClient bool
	modeServer bool
	modeDaemon bool

	encodingLetter string
	port           int
	loglevel       string
	configPath     string
)

// rootCmd mirrors groonga.c's getopt table: -a/-c/-s/-d pick a mode
// (alone is the default when none is given), -e picks the text encoding,
// -p the port, -l a loglevel, and a single positional dest argument that
// means a db path in alone/server modes and a hostname in client mode.
var rootCmd = &cobra.Command{
	Use:   "ftsengine [dest]",
	Short: "ftsengine - embeddable full-text search engine",
	Long:  `A small full-text search engine core: PAT trie lexicon, hash table, inverted index, snippet extraction, and a dispatch server speaking GQTP and MBREQ.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRoot,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&modeAlone, "alone", "a", false, "standalone REPL mode (default)")
	rootCmd.PersistentFlags().BoolVarP(&modeClient, "client", "c", false, "client mode: dest is a server hostname")
	rootCmd.PersistentFlags().BoolVarP(&modeServer, "server", "s", false, "forked-daemon server mode")
	rootCmd.PersistentFlags().BoolVarP(&modeDaemon, "daemon", "d", false, "foreground server mode")
	rootCmd.PersistentFlags().StringVarP(&encodingLetter, "encoding", "e", "", "text encoding: n/e/u/s/l/k (default u)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "listen/connect port (default 10041)")
	rootCmd.PersistentFlags().StringVarP(&loglevel, "loglevel", "l", "", "log level: quiet/normal/verbose")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to ftsengine.toml (default: auto-discover)")
}

// Execute runs the root command, returning a non-nil error for any
// failure or usage mistake (spec.md §6: "exit code 0 on success, -1 on
// failure; usage also -1").
func Execute() error {
	return rootCmd.Execute()
}

func runRoot(cmd *cobra.Command, args []string) error {
	switch loglevel {
	case "verbose":
		debug.SetVerbose(true)
	case "quiet":
		debug.SetQuiet(true)
	}

	if countModes() > 1 {
		return fmt.Errorf("ftsengine: only one of -a/-c/-s/-d may be given")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	enc := cfg.Encoding
	if cmd.Flags().Changed("encoding") {
		enc = fctx.ParseEncoding(encodingLetter)
	}

	dest := ""
	if len(args) > 0 {
		dest = args[0]
	}

	switch {
	case modeClient:
		return runClient(dest, cfg.Port)
	case modeServer:
		return runDaemon(dest, cfg)
	case modeDaemon:
		return runForeground(dest, cfg)
	default:
		return runAlone(dest, enc)
	}
}

func countModes() int {
	n := 0
	for _, v := range []bool{modeAlone, modeClient, modeServer, modeDaemon} {
		if v {
			n++
		}
	}
	return n
}
