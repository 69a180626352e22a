// FILE: lixenwraith/logroll/compat/builder.go
package compat

import (
	"fmt"

	"github.com/lixenwraith/logroll"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Builder provides a flexible way to create adapters for gnet, fasthttp, Fiber and zap.
// It can use an existing engine or open one from a *logroll.Config on a registry.
type Builder struct {
	writer   LineWriter
	cfg      *logroll.Config
	registry *logroll.Registry
	err      error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithWriter specifies an existing engine (or any LineWriter) for the adapters.
// If this is set WithConfig is ignored.
func (b *Builder) WithWriter(w LineWriter) *Builder {
	if w == nil {
		b.err = fmt.Errorf("logroll/compat: provided writer cannot be nil")
		return b
	}
	b.writer = w
	return b
}

// WithConfig provides the configuration of an engine to open on registry.
// Used only if no writer was given via WithWriter.
func (b *Builder) WithConfig(registry *logroll.Registry, cfg *logroll.Config) *Builder {
	if registry == nil {
		b.err = fmt.Errorf("logroll/compat: provided registry cannot be nil")
		return b
	}
	b.registry = registry
	b.cfg = cfg
	return b
}

// getWriter resolves the writer, opening an engine if necessary
func (b *Builder) getWriter() (LineWriter, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.writer != nil {
		return b.writer, nil
	}

	if b.registry == nil || b.cfg == nil {
		return nil, fmt.Errorf("logroll/compat: no writer or config provided")
	}

	engine, err := b.registry.Open(b.cfg)
	if err != nil {
		return nil, err
	}

	// Cache the engine for subsequent builds with this builder
	b.writer = engine
	return engine, nil
}

// BuildGnet creates a gnet adapter
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	w, err := b.getWriter()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(w, opts...), nil
}

// BuildStructuredGnet creates a gnet adapter that extracts key=value fields from format strings
func (b *Builder) BuildStructuredGnet(opts ...GnetOption) (*StructuredGnetAdapter, error) {
	w, err := b.getWriter()
	if err != nil {
		return nil, err
	}
	return NewStructuredGnetAdapter(w, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	w, err := b.getWriter()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(w, opts...), nil
}

// BuildFiber creates a Fiber v2 adapter
func (b *Builder) BuildFiber(opts ...FiberOption) (*FiberAdapter, error) {
	w, err := b.getWriter()
	if err != nil {
		return nil, err
	}
	return NewFiberAdapter(w, opts...), nil
}

// BuildZap creates a JSON zap logger at the given level
func (b *Builder) BuildZap(level zapcore.Level, fields ...zap.Field) (*zap.Logger, error) {
	w, err := b.getWriter()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(w, level, fields...), nil
}

// GetWriter returns the underlying writer, opening the engine if needed
func (b *Builder) GetWriter() (LineWriter, error) {
	return b.getWriter()
}

// --- Example Usage ---
//
//	registry := logroll.NewRegistry()
//	defer registry.Close(time.Second)
//
//	cfg := logroll.DefaultConfig()
//	cfg.Path = "/var/log/app/server.log"
//
//	builder := compat.NewBuilder().WithConfig(registry, cfg)
//
//	gnetLogger, err := builder.BuildGnet()
//	if err != nil { /* handle error */ }
//	go gnet.Run(events, "tcp://:9000", gnet.WithLogger(gnetLogger))
//
//	fasthttpLogger, err := builder.BuildFastHTTP()
//	if err != nil { /* handle error */ }
//	server := &fasthttp.Server{Handler: handler, Logger: fasthttpLogger}
//
//	fiberLogger, err := builder.BuildFiber()
//	if err != nil { /* handle error */ }
//	fiberlog.SetLogger(fiberLogger)
//
//	zl, err := builder.BuildZap(zapcore.InfoLevel)
//	if err != nil { /* handle error */ }
//	defer zl.Sync()
