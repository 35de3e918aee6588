// Package lifecycle orchestrates startup and shutdown of the service's
// components with dependency ordering.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/psops/sentry/internal/logging"
)

// Manager starts registered components in dependency order and stops them
// in reverse order of startup, each with its own shutdown grace period.
type Manager struct {
	mu              sync.Mutex
	components      []Component
	dependencies    map[Component][]Component
	started         []Component
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewManager creates a lifecycle manager with a 30-second per-component
// shutdown grace period.
func NewManager() *Manager {
	return &Manager{
		dependencies:    make(map[Component][]Component),
		shutdownTimeout: 30 * time.Second,
		logger:          logging.GetLogger("lifecycle"),
	}
}

// Register adds a component. Dependencies must already be registered; the
// component starts only after all of them have started and stops before
// any of them.
func (m *Manager) Register(component Component, dependsOn ...Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if component == nil {
		return fmt.Errorf("cannot register nil component")
	}
	if component.Name() == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	for _, c := range m.components {
		if c == component {
			return fmt.Errorf("component %s is already registered", component.Name())
		}
	}
	for _, dep := range dependsOn {
		registered := false
		for _, c := range m.components {
			if c == dep {
				registered = true
				break
			}
		}
		if !registered {
			return fmt.Errorf("dependency %s is not registered", dep.Name())
		}
	}

	m.components = append(m.components, component)
	m.dependencies[component] = dependsOn
	m.logger.Debug("Registered component %s with %d dependencies", component.Name(), len(dependsOn))
	return nil
}

// Start brings all components up in dependency order. If any component
// fails, the ones already started are stopped in reverse order and the
// failure is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = nil
	for _, component := range m.topologicalSort() {
		m.logger.Info("Starting %s", component.Name())
		startTime := time.Now()

		if err := component.Start(ctx); err != nil {
			m.logger.Error("Failed to start %s: %v", component.Name(), err)
			m.rollback()
			return fmt.Errorf("initialization failed for %s: %w", component.Name(), err)
		}

		m.started = append(m.started, component)
		m.logger.Info("%s started (took %dms)", component.Name(), time.Since(startTime).Milliseconds())
	}

	m.logger.Info("All components started")
	return nil
}

// Stop shuts down all started components in reverse order of startup.
// Shutdown errors are logged, not returned; one slow component must not
// keep the rest from stopping.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Stopping all components")
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		m.logger.Info("Stopping %s", component.Name())

		componentCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		if err := component.Stop(componentCtx); err != nil {
			m.logger.Error("Error stopping %s: %v", component.Name(), err)
		}
		cancel()
	}
	m.started = nil

	m.logger.Info("All components stopped")
	return nil
}

// SetShutdownTimeout overrides the per-component grace period.
func (m *Manager) SetShutdownTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = timeout
}

func (m *Manager) topologicalSort() []Component {
	visited := make(map[Component]bool)
	var sorted []Component

	var visit func(Component)
	visit = func(c Component) {
		visited[c] = true
		for _, dep := range m.dependencies[c] {
			if !visited[dep] {
				visit(dep)
			}
		}
		sorted = append(sorted, c)
	}

	for _, c := range m.components {
		if !visited[c] {
			visit(c)
		}
	}
	return sorted
}

func (m *Manager) rollback() {
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := component.Stop(ctx); err != nil {
			m.logger.Warn("Error stopping %s during rollback: %v", component.Name(), err)
		}
		cancel()
	}
	m.started = nil
}
