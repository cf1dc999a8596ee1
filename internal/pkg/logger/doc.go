// Package logger provides a process-wide zap logger with request scoping through context.
//
// Initialise once in main:
//
//	logger.Init(logger.Config{Env: cfg.LogEnv, Level: cfg.LogLevel, ServiceName: "crudserver"})
//	defer logger.Sync()
//
// Then, wherever a context is available:
//
//	logger.From(ctx).Info("user created", logger.ID(id))
//
// Without a context, logger.L() returns the process logger.
package logger
