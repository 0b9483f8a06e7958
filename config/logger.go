package config

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the config package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the config package's logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

func optionFields(path string, o Options) []zap.Field {
	return []zap.Field{
		zap.String("path", path),
		zap.Stringer("protocol_version", o.Version()),
		zap.String("dispatch_mode", o.DispatchMode),
		zap.Bool("generate_hooks", o.GenerateHooks),
		zap.String("package", o.Package),
		zap.String("output_dir", o.OutputDir),
		zap.Int("type_mapping_overrides", len(o.TypeMappingOverrides)),
	}
}
