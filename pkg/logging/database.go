package logging

import (
	"sync"
)

// DatabaseLoggerFactory extends the default factory with database persistence
type DatabaseLoggerFactory struct {
	*DefaultLoggerFactory
	repository LogRepository
}

// NewDatabaseLoggerFactory creates a logger factory with database persistence
func NewDatabaseLoggerFactory(repository LogRepository) LoggerFactory {
	return &DatabaseLoggerFactory{
		DefaultLoggerFactory: &DefaultLoggerFactory{
			loggers: make(map[string]Logger),
		},
		repository: repository,
	}
}

// CreateLogger creates a database-backed logger for the specified component
func (f *DatabaseLoggerFactory) CreateLogger(component string) Logger {
	f.mu.Lock()
	defer f.mu.Unlock()

	if logger, exists := f.loggers[component]; exists {
		return logger
	}

	base := NewZapLogger(component)
	dbLogger := NewDatabaseLogger(base, component, f.repository)
	f.loggers[component] = dbLogger
	return dbLogger
}

// CreateFetcherLogger creates a database-backed logger for media fetch operations
func (f *DatabaseLoggerFactory) CreateFetcherLogger(guildID string) Logger {
	return f.CreateLogger("fetcher").WithContext(map[string]interface{}{
		"guild_id": guildID,
	})
}

// CreatePipelineLogger creates a database-backed logger for pipeline workers
func (f *DatabaseLoggerFactory) CreatePipelineLogger(guildID string) Logger {
	return f.CreateLogger("pipeline").WithContext(map[string]interface{}{
		"guild_id": guildID,
	})
}

// CreatePlayerLogger creates a database-backed logger for playback operations
func (f *DatabaseLoggerFactory) CreatePlayerLogger(guildID string) Logger {
	return f.CreateLogger("player").WithContext(map[string]interface{}{
		"guild_id": guildID,
	})
}

// CreateQueueLogger creates a database-backed logger for queue operations
func (f *DatabaseLoggerFactory) CreateQueueLogger(guildID string) Logger {
	return f.CreateLogger("queue").WithContext(map[string]interface{}{
		"guild_id": guildID,
	})
}

// CreateCommandLogger creates a database-backed logger for command operations
func (f *DatabaseLoggerFactory) CreateCommandLogger(commandName string) Logger {
	return f.CreateLogger("commands").WithContext(map[string]interface{}{
		"command": commandName,
	})
}

// DatabaseLogger wraps a base logger with database persistence
type DatabaseLogger struct {
	base       Logger
	component  string
	context    map[string]interface{}
	repository LogRepository
	mu         sync.Mutex
}

// NewDatabaseLogger creates a new database-backed logger
func NewDatabaseLogger(base Logger, component string, repository LogRepository) Logger {
	return &DatabaseLogger{
		base:       base,
		component:  component,
		context:    make(map[string]interface{}),
		repository: repository,
	}
}

// Info logs informational messages and persists to database
func (d *DatabaseLogger) Info(msg string, fields map[string]interface{}) {
	d.base.Info(msg, fields)
	d.persistLog("INFO", msg, nil, fields)
}

// Error logs error messages and persists to database
func (d *DatabaseLogger) Error(msg string, err error, fields map[string]interface{}) {
	d.base.Error(msg, err, fields)
	d.persistLog("ERROR", msg, err, fields)
}

// Warn logs warning messages and persists to database
func (d *DatabaseLogger) Warn(msg string, fields map[string]interface{}) {
	d.base.Warn(msg, fields)
	d.persistLog("WARN", msg, nil, fields)
}

// Debug logs debug messages and persists to database
func (d *DatabaseLogger) Debug(msg string, fields map[string]interface{}) {
	d.base.Debug(msg, fields)
	d.persistLog("DEBUG", msg, nil, fields)
}

// WithPipeline creates a new logger with pipeline context
func (d *DatabaseLogger) WithPipeline(pipeline string) Logger {
	ctx := d.copyContext()
	ctx["pipeline"] = pipeline
	return &DatabaseLogger{
		base:       d.base.WithPipeline(pipeline),
		component:  d.component,
		context:    ctx,
		repository: d.repository,
	}
}

// WithContext creates a new logger with additional context fields
func (d *DatabaseLogger) WithContext(ctx map[string]interface{}) Logger {
	merged := d.copyContext()
	for k, v := range ctx {
		merged[k] = v
	}
	return &DatabaseLogger{
		base:       d.base.WithContext(ctx),
		component:  d.component,
		context:    merged,
		repository: d.repository,
	}
}

func (d *DatabaseLogger) copyContext() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctx := make(map[string]interface{}, len(d.context))
	for k, v := range d.context {
		ctx[k] = v
	}
	return ctx
}

// persistLog saves the log entry to the database without blocking the caller
func (d *DatabaseLogger) persistLog(level, message string, err error, fields map[string]interface{}) {
	if d.repository == nil {
		return
	}

	entry := LogEntry{
		Component: d.component,
		Level:     level,
		Message:   message,
		Fields:    fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	// Extract common identifying fields from context first, then overrides
	for _, src := range []map[string]interface{}{d.copyContext(), fields} {
		if guildID, ok := src["guild_id"].(string); ok {
			entry.GuildID = guildID
		}
		if userID, ok := src["user_id"].(string); ok {
			entry.UserID = userID
		}
		if channelID, ok := src["channel_id"].(string); ok {
			entry.ChannelID = channelID
		}
	}

	go func() {
		if saveErr := d.repository.SaveLog(entry); saveErr != nil {
			// Log to the base logger only, to avoid recursion
			d.base.Error("Failed to persist log to database", saveErr, map[string]interface{}{
				"original_message": message,
				"original_level":   level,
			})
		}
	}()
}
