// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// The package standardises structured logging across the engine through a
// single factory, New, that creates a *slog.Logger configured by Option
// functions: output format (text or json), minimum level, default attributes,
// and ContextExtractor callbacks that pull request-scoped values out of the
// context on every Handle call.
//
// Helper constructors such as Error, NotificationID, CompanyID and
// ConnectionState live in attr.go and keep attribute naming consistent across
// the transport, store and session packages.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithDevelopment("notifhub"),
//	    logger.WithAttr(logger.Component("transport")),
//	)
//	log.LogAttrs(ctx, slog.LevelInfo, "connected", logger.SubjectID(id))
package logger
