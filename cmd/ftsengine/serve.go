package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/ryogrid/ftsengine/internal/config"
	"github.com/ryogrid/ftsengine/internal/server"
)

// runForeground implements spec.md §6's `-d` mode: a foreground dispatch
// server listening on cfg.Port against the db at dest, shutting down on
// SIGINT/SIGTERM.
func runForeground(dest string, cfg *config.Config) error {
	db, err := openOrCreate(dest)
	if err != nil {
		return err
	}
	defer db.Close()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("ftsengine: listen: %w", err)
	}

	srv := server.New(listener, db, server.EchoQL{})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return srv.Run(ctx)
}

// runDaemon implements spec.md §6's `-s` mode: "forked-daemon server
// (double-fork, print pid to stderr)". Go has no fork(2); the teacher's
// daemon launcher (cmd/bd's configureDaemonProcess) achieves the same
// detached-child effect by re-executing itself with Setsid, which we
// follow here: re-exec this same binary in `-d` mode, detached into its
// own session, and report the child's pid.
func runDaemon(dest string, cfg *config.Config) error {
	args := []string{"-d", "-p", fmt.Sprintf("%d", cfg.Port)}
	if dest != "" {
		args = append(args, dest)
	}

	cmd := exec.Command(os.Args[0], args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ftsengine: daemon start: %w", err)
	}
	fmt.Fprintln(os.Stderr, cmd.Process.Pid)
	return cmd.Process.Release()
}
