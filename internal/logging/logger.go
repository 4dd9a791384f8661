// Package logging defines the structured logger the rest of the project
// depends on, keeping the concrete backend out of package APIs.
package logging

import "context"

// Logger is a leveled, context-aware structured logger. Variadic args
// are alternating key-value pairs:
//
//	log.Info(ctx, "record created", "id", id, "equipoId", equipoID)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger whose records always carry the given
	// key-value pairs.
	With(args ...any) Logger
}
