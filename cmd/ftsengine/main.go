// Command ftsengine is the standalone/client/server entrypoint described
// by spec.md §6: `app [-a|-c|-s|-d] [-e enc] [-p port] [-l loglevel] [-h]
// [dest]`, grounded on the teacher's cmd/bd root command texture and on
// groonga.c's do_alone/do_client/do_server mode dispatch.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}
