package main

import "testing"

func TestCountModes(t *testing.T) {
	modeAlone, modeClient, modeServer, modeDaemon = false, false, false, false
	if got := countModes(); got != 0 {
		t.Fatalf("countModes() = %d, want 0", got)
	}

	modeClient, modeDaemon = true, true
	defer func() { modeClient, modeDaemon = false, false }()
	if got := countModes(); got != 2 {
		t.Fatalf("countModes() = %d, want 2", got)
	}
}
