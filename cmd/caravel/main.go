// Package main is a demonstration host for the Caravel runtime: it wires
// an in-memory render process, registers an extension, opens a document,
// and echoes render-process traffic until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caravel-web/caravel/internal/app"
	"github.com/caravel-web/caravel/internal/extension"
	"github.com/caravel-web/caravel/internal/ipc"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("caravel %s (%s)\n", version, commit)
		return 0
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	logger := application.Logger()

	// A built-in extension: echoes every message back to the document.
	echo := extension.NewAPIExtension("runtime.echo", echoAPI,
		extension.WithHandler(func(msg []byte) ([]byte, error) {
			return msg, nil
		}),
	)
	if !application.RegisterExtension(echo) {
		fmt.Fprintln(os.Stderr, "Error: failed to register built-in extension")
		return 1
	}

	if err := application.LoadExternalExtensions(); err != nil {
		logger.Warn("some external extensions failed to load: %v", err)
	}

	names := application.ExtensionService().Names()
	logger.Info("registered extensions: %s", strings.Join(names, ", "))

	// Stand-in render process. A real embedding would hand the extension
	// layer its renderer transport here instead.
	proc := ipc.NewChannelProcess(1, 128)
	go func() {
		for msg := range proc.Messages() {
			logger.Debug("-> renderer: %s", msg)
		}
	}()
	application.AttachRenderProcess(proc)

	doc := application.OpenDocument("about:blank")
	logger.Info("opened document %d (frame %d)", doc.ID(), doc.MainFrameID())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	return 0
}

// echoAPI is the JavaScript surface the echo extension injects.
const echoAPI = `var echo = {
  send: function(msg, callback) {
    extension.postMessage(msg);
    extension.setMessageListener(callback);
  }
};`

func parseFlags() (app.Options, bool) {
	var opts app.Options
	var extDirs string
	var showVersion bool

	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.LogDir, "log-dir", "", "Write logs to a file in this directory")
	flag.BoolVar(&opts.DeleteOldLog, "delete-old-log", false, "Delete the previous log file on startup")
	flag.StringVar(&extDirs, "ext-dirs", "", "Comma-separated directories to load extensions from")
	flag.StringVar(&opts.UpdaterSwitches, "component-updater", "", "Component updater debug switches")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if extDirs != "" {
		opts.ExtensionPaths = strings.Split(extDirs, ",")
	}

	return opts, showVersion
}
