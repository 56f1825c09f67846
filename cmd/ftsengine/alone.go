package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ryogrid/ftsengine/internal/database"
	"github.com/ryogrid/ftsengine/internal/server"

	fctx "github.com/ryogrid/ftsengine/internal/context"
)

// runAlone implements spec.md §6's `-a` mode, grounded on groonga.c's
// do_alone: open (or create) the db at dest, install a plain stdout send
// handler, then read newline-terminated lines from stdin and forward
// each as a request until stdin closes or the context quits.
func runAlone(dest string, enc fctx.Encoding) error {
	db, err := openOrCreate(dest)
	if err != nil {
		return err
	}
	defer db.Close()

	ql := server.EchoQL{}
	sender := &fctx.StdoutSender{W: os.Stdout}
	fc := fctx.New(enc, 0, sender, 4096)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "quit" {
			fc.Quit()
			break
		}
		out, err := ql.Execute(nil, fc, []byte(line), 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ftsengine: %v\n", err)
			continue
		}
		os.Stdout.Write(out)
		os.Stdout.Write([]byte("\n"))
		if fc.Status == fctx.StatusQuit {
			break
		}
	}
	return scanner.Err()
}

// openOrCreate opens dest as a database directory, creating it if it
// doesn't already hold one.
func openOrCreate(dest string) (*database.Database, error) {
	if dest == "" {
		dest = "."
	}
	if db, err := database.Open(dest); err == nil {
		return db, nil
	}
	return database.Create(dest)
}
