package logging

import (
	"sync"

	"jobradar/internal/config"
	"jobradar/internal/logging/adapters"
	"jobradar/internal/logging/types"
)

var (
	globalLogger Logger
	globalMu     sync.RWMutex
)

// Setup builds the global logger from configuration. Called once at
// startup; components then use GetGlobalLogger or pass loggers down.
func Setup(cfg *config.Config) (Logger, error) {
	logger := NewMultiLogger()
	logger.SetLevel(types.ParseLevel(cfg.Logging.Level))

	configured := false
	for _, ac := range cfg.Logging.Adapters {
		if !ac.Enabled {
			continue
		}
		switch ac.Type {
		case "stdout":
			format := cfg.Logging.Format
			if f, ok := ac.Options["format"].(string); ok {
				format = f
			}
			if err := logger.AddAdapter(adapters.NewStdoutAdapter(ac.Name, adapters.StdoutConfig{Format: format})); err != nil {
				return nil, err
			}
			configured = true
		case "file":
			path, _ := ac.Options["file_path"].(string)
			fa, err := adapters.NewFileAdapter(ac.Name, adapters.FileConfig{
				FilePath:   path,
				Format:     cfg.Logging.Format,
				CreateDirs: true,
			})
			if err != nil {
				return nil, err
			}
			if err := logger.AddAdapter(fa); err != nil {
				return nil, err
			}
			configured = true
		}
	}

	// Always have at least stdout
	if !configured {
		if err := logger.AddAdapter(adapters.NewStdoutAdapter("stdout", adapters.StdoutConfig{Format: cfg.Logging.Format})); err != nil {
			return nil, err
		}
	}

	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()

	return logger, nil
}

// GetGlobalLogger returns the process-wide logger, initializing a plain
// stdout logger if Setup has not run (tests, early startup).
func GetGlobalLogger() Logger {
	globalMu.RLock()
	if globalLogger != nil {
		defer globalMu.RUnlock()
		return globalLogger
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		logger := NewMultiLogger()
		_ = logger.AddAdapter(adapters.NewStdoutAdapter("stdout", adapters.StdoutConfig{Format: "text"}))
		globalLogger = logger
	}
	return globalLogger
}
