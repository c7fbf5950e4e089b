package device

import (
	"fmt"
	"sort"
	"strings"
)

// Opener initialises a display on conn. name is the display name the
// user asked for, options the raw option string.
type Opener func(conn Connection, name string, options Options) (Device, error)

// Driver describes one display binding.
type Driver struct {
	Name        string
	Description string
	// DefaultConnection is used when the caller gives no connection.
	DefaultConnection string
	Open              Opener
}

// Registry maps display names to drivers.
type Registry struct {
	drivers map[string]Driver
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[string]Driver),
	}
}

// Register adds or replaces a driver. Names are case-insensitive.
func (r *Registry) Register(d Driver) {
	r.drivers[strings.ToLower(d.Name)] = d
}

// Get returns the driver for name, or an error if none is registered.
func (r *Registry) Get(name string) (Driver, error) {
	d, ok := r.drivers[strings.ToLower(name)]
	if !ok {
		return Driver{}, fmt.Errorf("unknown display: %s (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return d, nil
}

// Names returns the registered display names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.drivers))
	for _, d := range r.drivers {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// Drivers returns the registered drivers sorted by name.
func (r *Registry) Drivers() []Driver {
	drivers := make([]Driver, 0, len(r.drivers))
	for _, d := range r.drivers {
		drivers = append(drivers, d)
	}
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].Name < drivers[j].Name })
	return drivers
}

// Open resolves name and initialises the display. An empty conn falls
// back to the driver's default connection. Every failure wraps ErrSetup.
func (r *Registry) Open(name, conn, options string) (Device, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if conn == "" {
		conn = d.DefaultConnection
	}
	opts, err := ParseOptions(options)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	dev, err := d.Open(ParseConnection(conn), name, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s on %q: %w", ErrSetup, d.Name, conn, err)
	}
	return dev, nil
}
