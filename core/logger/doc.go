// Package logger builds structured slog loggers and provides nil-safe attribute helpers.
//
// Create a logger for the environment the client runs in:
//
//	log := logger.New(
//		logger.WithDevelopment("cudatel"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log := logger.New(
//		logger.WithProduction("cudatel"),
//		logger.WithOutput(os.Stderr),
//	)
//
// Attribute helpers return an empty slog.Attr for zero input so they can be
// passed unconditionally:
//
//	log.Error("login failed",
//		logger.Component("tunnel"),
//		logger.Username(user),
//		logger.Error(err), // empty when err == nil
//	)
//
// Session tokens are credentials; always log them through SessionID, which
// masks everything but a short prefix.
//
// Discard returns a logger that drops every record and is the default for
// library components that were not given a logger.
package logger
