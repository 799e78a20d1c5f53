// Package logger builds the structured slog loggers used by the unwrap
// server and the serverless entrypoint. Records are text in development and
// JSON in production, and always carry the service and environment.
package logger
