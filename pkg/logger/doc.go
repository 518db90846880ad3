// Package logger provides a context-aware wrapper around Go's slog package
// with functional options for configuration, helper attribute constructors
// for billing identifiers, and transparent injection of values stored in
// context.Context.
//
// The single factory, New, creates a *slog.Logger configured by Option
// functions: output format (text or json), minimum level, static attributes
// applied to every record, and ContextExtractor callbacks that pull dynamic
// attributes (such as a request id) from the context on every log call.
//
// Helper constructors such as Error, EventID, SubscriptionID and
// TransactionID live in attr.go and keep attribute naming consistent across
// the codebase, which matters when searching aggregated logs for a single
// provider event.
package logger
