// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/blockserve/lib/blockfile"
	"github.com/bureau-foundation/blockserve/lib/manifest"
	"github.com/bureau-foundation/blockserve/stream"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "blockserve: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		manifestPath string
		listenAddr   string
		connectAddr  string
		network      string
		logOutput    string
		logLevel     string
	)

	flagSet := pflag.NewFlagSet("blockserve", pflag.ContinueOnError)
	flagSet.StringVar(&manifestPath, "manifest", "", "YAML manifest of served files (alternative to positional paths)")
	flagSet.StringVar(&listenAddr, "listen", "", "address to accept one device connection on")
	flagSet.StringVar(&connectAddr, "connect", "", "address to dial the device at")
	flagSet.StringVar(&network, "network", "tcp", "connection network (tcp or unix)")
	flagSet.StringVar(&logOutput, "log-output", "", "file receiving the device's interleaved log text (default stderr)")
	flagSet.StringVar(&logLevel, "log-level", "info", "diagnostic log level (debug, info, warn, error)")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: blockserve [flags] [file ...]\n\n%s", flagSet.FlagUsages())
	}
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}

	files, closeFiles, err := openFiles(manifestPath, flagSet.Args())
	if err != nil {
		return err
	}
	defer closeFiles()

	conn, err := establishConnection(network, listenAddr, connectAddr, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	logSink, closeSink, err := openLogSink(logOutput)
	if err != nil {
		return err
	}
	defer closeSink()

	logger.Info("serving", "files", len(files), "remote", conn.RemoteAddr())
	server := stream.New(conn, logSink, files, stream.Options{Logger: logger})
	return server.Serve()
}

// newLogger builds the diagnostic logger. Diagnostics always go to
// stderr; the device's log text goes to the sink, which defaults to
// stderr too but is a separate stream by contract.
func newLogger(level string) (*slog.Logger, error) {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})), nil
}

// openFiles builds the server's file table from the manifest or the
// positional arguments, verifying manifest digests where pinned. The
// returned cleanup closes every opened file.
func openFiles(manifestPath string, positional []string) ([]*blockfile.File, func(), error) {
	var entries []manifest.Entry
	switch {
	case manifestPath != "" && len(positional) > 0:
		return nil, nil, fmt.Errorf("--manifest and positional files are mutually exclusive")
	case manifestPath != "":
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return nil, nil, err
		}
		entries = m.Files
	case len(positional) > 0:
		for _, path := range positional {
			entries = append(entries, manifest.Entry{Path: path})
		}
	default:
		return nil, nil, fmt.Errorf("must specify at least one file to serve")
	}
	if len(entries) > math.MaxInt16 {
		return nil, nil, fmt.Errorf("%d files exceed the protocol's file table limit", len(entries))
	}

	var files []*blockfile.File
	var handles []*os.File
	closeAll := func() {
		for _, handle := range handles {
			handle.Close()
		}
	}

	for i, entry := range entries {
		if err := entry.Verify(); err != nil {
			closeAll()
			return nil, nil, err
		}
		handle, err := os.Open(entry.Path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening served file: %w", err)
		}
		handles = append(handles, handle)
		info, err := handle.Stat()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("stat %s: %w", entry.Path, err)
		}
		file, err := blockfile.New(int16(i), entry.Path, info.Size(), handle, nil)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, file)
	}
	return files, closeAll, nil
}

// establishConnection either accepts one peer or dials out, per flags.
func establishConnection(network, listenAddr, connectAddr string, logger *slog.Logger) (net.Conn, error) {
	switch {
	case listenAddr != "" && connectAddr != "":
		return nil, fmt.Errorf("--listen and --connect are mutually exclusive")
	case listenAddr != "":
		if network == "unix" {
			// Remove any stale socket left by a previous run, or the
			// listen fails with "address already in use".
			if err := os.Remove(listenAddr); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("removing stale socket %s: %w", listenAddr, err)
			}
		}
		listener, err := net.Listen(network, listenAddr)
		if err != nil {
			return nil, fmt.Errorf("listening on %s: %w", listenAddr, err)
		}
		defer listener.Close()
		logger.Info("waiting for device connection", "network", network, "address", listenAddr)
		conn, err := listener.Accept()
		if err != nil {
			return nil, fmt.Errorf("accepting connection: %w", err)
		}
		return conn, nil
	case connectAddr != "":
		conn, err := net.Dial(network, connectAddr)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", connectAddr, err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("must specify --listen or --connect")
	}
}

// openLogSink opens the destination for the device's interleaved log
// text. Defaults to stderr.
func openLogSink(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	sink, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output: %w", err)
	}
	return sink, func() { sink.Close() }, nil
}
