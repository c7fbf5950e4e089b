package osd

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// Well-known widget IDs created by NewDefaultManager.
const (
	ProgressID = "progress"
	StatusID   = "status"
)

// Manager handles OSD widgets and rendering. Render and every mutation
// take the lock, so widgets may be updated from other goroutines.
type Manager struct {
	widgets map[string]Widget
	mu      sync.RWMutex
	enabled bool
}

// NewManager creates a new OSD manager
func NewManager() *Manager {
	return &Manager{
		widgets: make(map[string]Widget),
		enabled: true,
	}
}

// NewDefaultManager creates a manager with a hidden progress bar and an
// empty status line.
func NewDefaultManager() *Manager {
	m := NewManager()
	bar, _ := NewProgressBar(ProgressID, nil)
	text, _ := NewTextWidget(StatusID, nil)
	m.widgets[bar.ID()] = bar
	m.widgets[text.ID()] = text
	return m
}

// AddWidget adds a widget to the OSD
func (m *Manager) AddWidget(widget Widget) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.widgets[widget.ID()]; exists {
		return fmt.Errorf("widget with ID %s already exists", widget.ID())
	}

	m.widgets[widget.ID()] = widget
	logger.WithComponent("osd").Debug().Str("id", widget.ID()).Str("type", widget.Type()).Msg("Added widget")
	return nil
}

// RemoveWidget removes a widget from the OSD
func (m *Manager) RemoveWidget(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.widgets[id]; !exists {
		return fmt.Errorf("widget with ID %s not found", id)
	}

	delete(m.widgets, id)
	logger.WithComponent("osd").Debug().Str("id", id).Msg("Removed widget")
	return nil
}

// GetWidget retrieves a widget by ID
func (m *Manager) GetWidget(id string) (Widget, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	widget, exists := m.widgets[id]
	return widget, exists
}

// GetAllWidgets returns all widgets in render order
func (m *Manager) GetAllWidgets() []Widget {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ordered()
}

func (m *Manager) ordered() []Widget {
	widgets := make([]Widget, 0, len(m.widgets))
	for _, widget := range m.widgets {
		widgets = append(widgets, widget)
	}
	sort.Slice(widgets, func(i, j int) bool {
		if widgets[i].Z() != widgets[j].Z() {
			return widgets[i].Z() < widgets[j].Z()
		}
		return widgets[i].ID() < widgets[j].ID()
	})
	return widgets
}

// UpdateWidget updates a widget's configuration
func (m *Manager) UpdateWidget(id string, config map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	widget, exists := m.widgets[id]
	if !exists {
		return fmt.Errorf("widget with ID %s not found", id)
	}

	if err := widget.UpdateConfig(config); err != nil {
		return fmt.Errorf("failed to update widget config: %w", err)
	}
	return nil
}

// SetProgress shows the default progress bar at value, 0 to 255.
func (m *Manager) SetProgress(value int) error {
	return m.UpdateWidget(ProgressID, map[string]interface{}{"value": value, "visible": true})
}

// HideProgress hides the default progress bar.
func (m *Manager) HideProgress() error {
	return m.UpdateWidget(ProgressID, map[string]interface{}{"visible": false})
}

// SetStatus sets the default status line. An empty string hides it.
func (m *Manager) SetStatus(text string) error {
	return m.UpdateWidget(StatusID, map[string]interface{}{"text": text})
}

// SetEnabled enables or disables the entire OSD
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// IsEnabled returns whether the OSD is enabled
func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Render draws all enabled widgets and returns the areas they touched.
func (m *Manager) Render(s Surface) ([]image.Rectangle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.enabled {
		return nil, nil
	}

	var dirty []image.Rectangle
	for _, widget := range m.ordered() {
		if !widget.IsEnabled() {
			continue
		}
		r, err := widget.Render(s)
		if err != nil {
			logger.WithComponent("osd").Warn().Err(err).Str("id", widget.ID()).Msg("Failed to render widget")
			continue
		}
		if !r.Empty() {
			dirty = append(dirty, r)
		}
	}
	return dirty, nil
}

// CreateWidget creates a new widget instance from configuration
func (m *Manager) CreateWidget(widgetType string, id string, config map[string]interface{}) (Widget, error) {
	var widget Widget
	var err error

	switch widgetType {
	case "progress":
		widget, err = NewProgressBar(id, config)
	case "text":
		widget, err = NewTextWidget(id, config)
	default:
		return nil, fmt.Errorf("unknown widget type: %s", widgetType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s widget: %w", widgetType, err)
	}

	return widget, nil
}

// LoadFromConfig creates widgets from their exported configurations.
// Entries without a type or ID are skipped.
func (m *Manager) LoadFromConfig(configs []map[string]interface{}) error {
	log := logger.WithComponent("osd")
	for _, config := range configs {
		widgetType, ok := config["type"].(string)
		if !ok {
			log.Warn().Msg("Skipping widget with missing type")
			continue
		}

		id, ok := config["id"].(string)
		if !ok {
			log.Warn().Msg("Skipping widget with missing ID")
			continue
		}

		if existing, ok := m.GetWidget(id); ok && existing.Type() == widgetType {
			if err := m.UpdateWidget(id, config); err != nil {
				return err
			}
			continue
		}

		widget, err := m.CreateWidget(widgetType, id, config)
		if err != nil {
			return err
		}
		if err := m.AddWidget(widget); err != nil {
			return err
		}
	}

	return nil
}

// ExportConfig exports all widget configurations
func (m *Manager) ExportConfig() []map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configs := make([]map[string]interface{}, 0, len(m.widgets))
	for _, widget := range m.ordered() {
		configs = append(configs, widget.GetConfig())
	}
	return configs
}

// Clear removes all widgets
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.widgets = make(map[string]Widget)
}
