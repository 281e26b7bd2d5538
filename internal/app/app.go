// Package app wires the runtime together for embedders: document
// registry, extension service, render-process transport, and the message
// filter for renderer-originated traffic.
package app

import (
	"errors"
	"io"
	"os"

	"github.com/caravel-web/caravel/internal/extension"
	"github.com/caravel-web/caravel/internal/ipc"
	"github.com/caravel-web/caravel/internal/log"
	"github.com/caravel-web/caravel/internal/runtime"
	"github.com/caravel-web/caravel/internal/updater"
)

// Options configures an Application.
type Options struct {
	// LogLevel is the minimum log level ("debug", "info", "warn", "error").
	LogLevel string

	// LogDir, when set, directs logs to a file in that directory instead
	// of stderr.
	LogDir string

	// DeleteOldLog removes the previous log file on startup. Only the
	// main process should set this.
	DeleteOldLog bool

	// ExtensionPaths are directories searched for on-disk extensions.
	ExtensionPaths []string

	// UpdaterSwitches is the component-updater debug switch value.
	UpdaterSwitches string

	// OpenExternal is invoked when a renderer asks to open a URL outside
	// the runtime. Optional; the request is logged either way.
	OpenExternal func(url string)
}

// Application is the embedder-facing runtime facade.
type Application struct {
	opts Options

	logger  *log.Logger
	logFile *os.File

	registry *runtime.Registry
	service  *extension.Service
	loader   *extension.Loader
	filter   *ipc.MessageFilter
	updater  *updater.Configurator

	process ipc.Process
}

// New creates an application from the given options.
func New(opts Options) (*Application, error) {
	a := &Application{
		opts:    opts,
		updater: updater.New(opts.UpdaterSwitches),
	}

	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(opts.LogLevel)
	if opts.LogDir != "" {
		logger, f, err := log.InitFileLogging(cfg, opts.LogDir, opts.DeleteOldLog)
		if err != nil {
			return nil, err
		}
		a.logger = logger
		a.logFile = f
	} else {
		a.logger = log.New(cfg)
	}
	log.SetDefault(a.logger)

	a.registry = runtime.NewRegistry()
	a.service = extension.NewService(a.registry,
		extension.WithLogger(a.logger.WithComponent("extension")),
	)
	a.loader = extension.NewLoader(extension.WithPaths(opts.ExtensionPaths...))

	a.filter = ipc.NewMessageFilter()
	a.filter.Handle(ipc.TypeOpenLinkExternal, a.onOpenLinkExternal)
	a.filter.Handle(ipc.TypePostMessage, a.onPostMessage)

	return a, nil
}

// Logger returns the application logger.
func (a *Application) Logger() *log.Logger {
	return a.logger
}

// Registry returns the document registry.
func (a *Application) Registry() *runtime.Registry {
	return a.registry
}

// ExtensionService returns the extension service.
func (a *Application) ExtensionService() *extension.Service {
	return a.service
}

// MessageFilter returns the filter for renderer-originated messages.
func (a *Application) MessageFilter() *ipc.MessageFilter {
	return a.filter
}

// UpdaterConfig returns the component updater configuration.
func (a *Application) UpdaterConfig() *updater.Configurator {
	return a.updater
}

// RegisterExtension registers ext with the extension service. Must be
// called before AttachRenderProcess.
func (a *Application) RegisterExtension(ext extension.Extension) bool {
	return a.service.Register(ext)
}

// LoadExternalExtensions discovers on-disk extensions and registers every
// loadable one. Broken extensions are logged and skipped.
func (a *Application) LoadExternalExtensions() error {
	infos, err := a.loader.Discover()
	if err != nil {
		return err
	}

	var loadErrs []error
	for _, info := range infos {
		ext, err := a.loader.Load(info)
		if err != nil {
			a.logger.Warn("skipping extension %q: %v", info.Name, err)
			loadErrs = append(loadErrs, err)
			continue
		}
		if !a.service.Register(ext) {
			a.logger.Warn("extension %q was not registered", info.Name)
			if c, ok := ext.(io.Closer); ok {
				_ = c.Close()
			}
		}
	}

	return errors.Join(loadErrs...)
}

// AttachRenderProcess binds the extension layer to the render process.
// Only the first attached process is ever bound.
func (a *Application) AttachRenderProcess(p ipc.Process) {
	a.process = p
	a.service.OnRenderProcessCreated(p)
}

// OpenDocument creates a document for url, triggering extension
// attachment when a render process is bound.
func (a *Application) OpenDocument(url string) *runtime.Document {
	return a.registry.CreateDocument(url)
}

// CloseDocument closes the document with the given id, tearing down its
// extension handler and runners.
func (a *Application) CloseDocument(id int64) error {
	return a.registry.CloseDocument(id)
}

// onOpenLinkExternal handles a renderer request to open a URL outside the
// runtime.
func (a *Application) onOpenLinkExternal(msg ipc.Message) error {
	url := msg.Get("url").String()
	a.logger.Info("OpenLinkExternal: %s", url)
	if a.opts.OpenExternal != nil {
		a.opts.OpenExternal(url)
	}
	return nil
}

// onPostMessage routes a renderer-originated extension message to the
// runner attached for it.
func (a *Application) onPostMessage(msg ipc.Message) error {
	name := msg.Get("extension").String()
	frameID := msg.Get("frame").Int()
	payload := []byte(msg.Get("payload").String())

	if !a.service.DispatchToFrame(name, frameID, payload) {
		a.logger.Debug("dropping message for %q: no runner on frame %d", name, frameID)
	}
	return nil
}

// Shutdown tears the runtime down: documents first (draining their
// runners), then the extension service, then the process transport and
// the log file.
func (a *Application) Shutdown() {
	if err := a.registry.CloseAll(); err != nil {
		a.logger.Error("closing documents: %v", err)
	}
	if err := a.service.Close(); err != nil {
		a.logger.Error("closing extension service: %v", err)
	}
	if c, ok := a.process.(io.Closer); ok {
		_ = c.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
