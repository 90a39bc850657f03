package logging

import (
	"sync"
)

// DefaultLoggerFactory implements LoggerFactory using zap loggers
type DefaultLoggerFactory struct {
	loggers map[string]Logger
	mu      sync.RWMutex
}

// NewLoggerFactory creates a new logger factory
func NewLoggerFactory() LoggerFactory {
	return &DefaultLoggerFactory{
		loggers: make(map[string]Logger),
	}
}

// CreateLogger creates a basic logger for the specified component
func (f *DefaultLoggerFactory) CreateLogger(component string) Logger {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createLoggerLocked(component)
}

func (f *DefaultLoggerFactory) createLoggerLocked(component string) Logger {
	if logger, exists := f.loggers[component]; exists {
		return logger
	}

	logger := NewZapLogger(component)
	f.loggers[component] = logger
	return logger
}

// CreateFetcherLogger creates a logger for media fetch operations in a guild
func (f *DefaultLoggerFactory) CreateFetcherLogger(guildID string) Logger {
	return f.CreateLogger("fetcher").WithContext(map[string]interface{}{
		"guild_id": guildID,
	})
}

// CreatePipelineLogger creates a logger for download pipeline workers
func (f *DefaultLoggerFactory) CreatePipelineLogger(guildID string) Logger {
	return f.CreateLogger("pipeline").WithContext(map[string]interface{}{
		"guild_id": guildID,
	})
}

// CreatePlayerLogger creates a logger for playback controller operations
func (f *DefaultLoggerFactory) CreatePlayerLogger(guildID string) Logger {
	return f.CreateLogger("player").WithContext(map[string]interface{}{
		"guild_id": guildID,
	})
}

// CreateQueueLogger creates a logger for queue operations in a guild
func (f *DefaultLoggerFactory) CreateQueueLogger(guildID string) Logger {
	return f.CreateLogger("queue").WithContext(map[string]interface{}{
		"guild_id": guildID,
	})
}

// CreateCommandLogger creates a logger for Discord command operations
func (f *DefaultLoggerFactory) CreateCommandLogger(commandName string) Logger {
	return f.CreateLogger("commands").WithContext(map[string]interface{}{
		"command": commandName,
	})
}

// GlobalLoggerFactory provides a singleton logger factory instance
var (
	globalFactory LoggerFactory
	factoryOnce   sync.Once
	globalMu      sync.RWMutex
)

// GetGlobalLoggerFactory returns the global logger factory instance
func GetGlobalLoggerFactory() LoggerFactory {
	globalMu.RLock()
	if globalFactory != nil {
		defer globalMu.RUnlock()
		return globalFactory
	}
	globalMu.RUnlock()

	factoryOnce.Do(func() {
		globalMu.Lock()
		globalFactory = NewLoggerFactory()
		globalMu.Unlock()
	})
	return globalFactory
}

// SetGlobalLoggerFactory sets the global logger factory (useful for dependency injection)
func SetGlobalLoggerFactory(factory LoggerFactory) {
	globalMu.Lock()
	globalFactory = factory
	globalMu.Unlock()
}
