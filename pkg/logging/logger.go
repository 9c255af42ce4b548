package logging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/Combine-Capital/cqlog/pkg/config"
	"github.com/Combine-Capital/cqlog/pkg/errors"
	"github.com/rs/zerolog"
)

// Logger provides structured logging annotated with the correlation scope.
// It wraps zerolog.Logger to provide a consistent interface across services.
type Logger struct {
	zlog    zerolog.Logger
	cfg     config.LogConfig
	closers []io.Closer
}

// Response describes an outbound or upstream response attached to a record.
type Response struct {
	StatusCode int
	Headers    http.Header
	Data       interface{}
}

// New creates a Logger from the provided configuration. It writes to the
// console output (stdout, stderr or none) and, when cfg.Dir is set, to a
// rotating file under that directory.
func New(cfg config.LogConfig) (*Logger, error) {
	var writers []io.Writer
	var closers []io.Closer

	switch strings.ToLower(cfg.Output) {
	case "none":
	case "stderr":
		writers = append(writers, consoleWriter(os.Stderr, cfg.Format))
	default:
		writers = append(writers, consoleWriter(os.Stdout, cfg.Format))
	}

	if cfg.Dir != "" {
		file, err := newFileSink(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create log file sink")
		}
		writers = append(writers, file)
		closers = append(closers, file)
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = zerolog.MultiLevelWriter(writers...)
	}

	l := newLogger(w, cfg)
	l.closers = closers
	return l, nil
}

// NewWithWriter creates a Logger writing JSON records to w. The correlation
// hook and static fields are the same as New.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *Logger {
	return newLogger(w, cfg)
}

func newLogger(w io.Writer, cfg config.LogConfig) *Logger {
	console := strings.ToLower(cfg.Format) == "console"

	zctx := zerolog.New(w).With()
	if console {
		zctx = zctx.Timestamp()
	}
	if host, err := os.Hostname(); err == nil {
		zctx = zctx.Str(Host, host)
	}
	zctx = zctx.Int(PID, os.Getpid())

	zlog := zctx.Logger().
		Hook(CorrelationHook{Timestamp: !console}).
		Level(parseLogLevel(cfg.Level))

	return &Logger{zlog: zlog, cfg: cfg}
}

func consoleWriter(out io.Writer, format string) io.Writer {
	if strings.ToLower(format) == "console" {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	}
	return out
}

// parseLogLevel converts a string log level to zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Warn returns a warning level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Fatal returns a fatal level event.
// The application will exit with status 1 after logging the event.
func (l *Logger) Fatal() *zerolog.Event {
	return l.zlog.Fatal()
}

// InfoCtx logs msg at info level with the scope of ctx. resp may be nil.
func (l *Logger) InfoCtx(ctx context.Context, msg string, tags []string, resp *Response) {
	e := withCtx(l.zlog.Info(), ctx)
	if e == nil {
		return
	}
	withTags(e, tags)
	if resp != nil {
		e.Dict(ResponseField, zerolog.Dict().
			Int(StatusCode, resp.StatusCode).
			Str(FullHeaders, fmt.Sprintf("%v", map[string][]string(resp.Headers))).
			Str(Data, renderData(resp.Data)))
	}
	e.Msg(msg)
}

// ErrorCtx logs msg at error level with err and the scope of ctx.
func (l *Logger) ErrorCtx(ctx context.Context, msg string, err error, tags []string) {
	e := withCtx(l.zlog.Error(), ctx)
	if e == nil {
		return
	}
	withTags(e, tags).Err(err).Msg(msg)
}

// DebugCtx logs msg at debug level with the scope of ctx.
func (l *Logger) DebugCtx(ctx context.Context, msg string, tags []string) {
	if e := withCtx(l.zlog.Debug(), ctx); e != nil {
		withTags(e, tags).Msg(msg)
	}
}

// WarnCtx logs msg at warn level with the scope of ctx.
func (l *Logger) WarnCtx(ctx context.Context, msg string, tags []string) {
	if e := withCtx(l.zlog.Warn(), ctx); e != nil {
		withTags(e, tags).Msg(msg)
	}
}

// withCtx attaches ctx to an enabled event; disabled events are nil.
func withCtx(e *zerolog.Event, ctx context.Context) *zerolog.Event {
	if e == nil {
		return nil
	}
	return e.Ctx(ctx)
}

func withTags(e *zerolog.Event, tags []string) *zerolog.Event {
	if tags == nil {
		tags = []string{}
	}
	return e.Strs(Tags, tags)
}

func renderData(data interface{}) string {
	switch v := data.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%+v", v)
	}
}

// With returns a logger with additional context fields.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// WithComponent returns a new logger with a component field set.
func (l *Logger) WithComponent(component string) *Logger {
	return l.derive(l.zlog.With().Str(Component, component).Logger())
}

// WithServiceName returns a new logger with the service name field set.
func (l *Logger) WithServiceName(serviceName string) *Logger {
	return l.derive(l.zlog.With().Str(ServiceName, serviceName).Logger())
}

// WithFields returns a new logger with multiple fields set.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(l.zlog.With().Fields(fields).Logger())
}

func (l *Logger) derive(zlog zerolog.Logger) *Logger {
	return &Logger{zlog: zlog, cfg: l.cfg, closers: l.closers}
}

// GetZerolog returns the underlying zerolog.Logger for advanced use cases.
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Level returns the current log level.
func (l *Logger) Level() zerolog.Level {
	return l.zlog.GetLevel()
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.zlog = l.zlog.Level(level)
}

// Close closes the file sinks. Derived loggers share them, so close only the
// root logger.
func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
