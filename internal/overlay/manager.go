package overlay

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/grab/internal/logger"
)

// Manager holds the widgets drawn over each preview frame, in the order
// they were added
type Manager struct {
	widgets []Widget
}

// NewManager creates an empty overlay manager
func NewManager() *Manager {
	return &Manager{}
}

// AddWidget adds a widget on top of the existing ones
func (m *Manager) AddWidget(widget Widget) error {
	if _, exists := m.GetWidget(widget.ID()); exists {
		return fmt.Errorf("widget with ID %s already exists", widget.ID())
	}
	m.widgets = append(m.widgets, widget)
	logger.WithComponent("overlay").Debug().
		Str("id", widget.ID()).
		Str("type", widget.Type()).
		Msg("Added widget")
	return nil
}

// RemoveWidget removes a widget from the overlay
func (m *Manager) RemoveWidget(id string) error {
	for i, w := range m.widgets {
		if w.ID() == id {
			m.widgets = append(m.widgets[:i], m.widgets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("widget with ID %s not found", id)
}

// GetWidget retrieves a widget by ID
func (m *Manager) GetWidget(id string) (Widget, bool) {
	for _, w := range m.widgets {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// Render draws all enabled widgets onto img
func (m *Manager) Render(img *image.RGBA) {
	for _, widget := range m.widgets {
		if !widget.IsEnabled() {
			continue
		}
		if err := widget.Render(img); err != nil {
			logger.WithComponent("overlay").Warn().
				Err(err).
				Str("id", widget.ID()).
				Msg("Failed to render widget")
		}
	}
}
