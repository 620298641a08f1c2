// Package logger builds slog loggers and provides attribute helpers so that every
// component logs the same keys.
//
//	log := logger.New(logger.WithDevelopment("flag-service"))
//	log.LogAttrs(ctx, slog.LevelWarn, "flag definitions refresh failed",
//	    logger.Component("flagstore"),
//	    logger.Error(err),
//	)
//
// FromConfig reads the level, format and service name from a Config populated by
// pkg/config. Context extractors registered with WithContextValue or
// WithContextExtractors add request-scoped attributes at log time.
//
// Error, Errors, DistinctID and Outcome return an empty attribute for zero input,
// which slog drops, so callers need no nil checks.
package logger
