package lifecycle

import "context"

// Component is a managed piece of the service: the tracing provider, the
// data source, the API server. The manager starts components in dependency
// order and stops them in reverse.
type Component interface {
	// Start initializes the component. The context can carry a deadline.
	Start(ctx context.Context) error

	// Stop shuts the component down, finishing in-flight work within the
	// context deadline.
	Stop(ctx context.Context) error

	// Name returns the human-readable component name, used in logs.
	Name() string
}
