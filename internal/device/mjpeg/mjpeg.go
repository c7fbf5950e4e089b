// Package mjpeg emulates a small display and streams it to browsers as
// Motion JPEG over HTTP.
package mjpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// Config holds the stream settings on top of the panel.
type Config struct {
	Panel device.MemoryConfig
	// Scale is the magnification of one device pixel.
	Scale   int
	Quality int
	// Addr is the listen address. Empty serves only through Routes.
	Addr string
}

// Display is an emulated panel whose Update publishes a JPEG frame to
// every connected client.
type Display struct {
	*device.Memory

	config Config
	out    *image.RGBA
	server *http.Server
	ln     net.Listener

	frameMu     sync.RWMutex
	currentJPEG []byte
	lastUpdate  time.Time

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	statsMu    sync.RWMutex
	frameCount uint64
	startTime  time.Time
	closed     bool
}

// New creates the display and, when cfg.Addr is set, starts serving.
func New(cfg Config) (*Display, error) {
	mem, err := device.NewMemory(cfg.Panel)
	if err != nil {
		return nil, err
	}
	if cfg.Scale < 1 {
		cfg.Scale = 4
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		cfg.Quality = 90
	}

	w, h := mem.EmulatedSize(cfg.Scale)
	d := &Display{
		Memory:    mem,
		config:    cfg,
		out:       image.NewRGBA(image.Rect(0, 0, w, h)),
		clients:   make(map[chan []byte]struct{}),
		startTime: time.Now(),
	}

	if cfg.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to listen on %s: %w", device.ErrSetup, cfg.Addr, err)
		}
		r := mux.NewRouter()
		d.Routes(r)
		d.ln = ln
		d.server = &http.Server{Handler: r}
		go func() {
			if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithComponent("device").Error().Err(err).Msg("MJPEG server failed")
			}
		}()
	}

	logger.WithComponent("device").Info().
		Str("addr", d.Addr()).
		Int("width", cfg.Panel.Width).
		Int("height", cfg.Panel.Height).
		Int("scale", cfg.Scale).
		Msg("MJPEG display started")
	return d, nil
}

// Addr returns the bound listen address, empty when not serving.
func (d *Display) Addr() string {
	if d.ln == nil {
		return ""
	}
	return d.ln.Addr().String()
}

// ClipArea blits a rectangle of a packed buffer.
func (d *Display) ClipArea(sx, sy, w, h, srcX, srcY, srcW, srcH int, format frame.Format, src []byte) error {
	return d.Blit(sx, sy, w, h, srcX, srcY, srcW, srcH, format, src)
}

// Update encodes the canvas and sends it to every client. Slow clients
// miss frames.
func (d *Display) Update() error {
	if err := d.Memory.Update(); err != nil {
		return err
	}

	d.Render(d.out)
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, d.out, &jpeg.Options{Quality: d.config.Quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := buf.Bytes()

	d.frameMu.Lock()
	d.currentJPEG = jpegData
	d.lastUpdate = time.Now()
	d.frameMu.Unlock()

	d.statsMu.Lock()
	d.frameCount++
	d.statsMu.Unlock()

	d.clientsMu.RLock()
	for ch := range d.clients {
		select {
		case ch <- jpegData:
		default:
		}
	}
	d.clientsMu.RUnlock()
	return nil
}

// Close stops the server and disconnects every client.
func (d *Display) Close() error {
	d.statsMu.Lock()
	if d.closed {
		d.statsMu.Unlock()
		return nil
	}
	d.closed = true
	frames := d.frameCount
	d.statsMu.Unlock()

	d.clientsMu.Lock()
	for ch := range d.clients {
		close(ch)
	}
	d.clients = make(map[chan []byte]struct{})
	d.clientsMu.Unlock()

	var err error
	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = d.server.Shutdown(ctx)
	}

	logger.WithComponent("device").Info().Uint64("frames", frames).Msg("MJPEG display stopped")
	return errors.Join(err, d.Memory.Close())
}

// Routes mounts the stream, a snapshot, a viewer page and stats on r.
func (d *Display) Routes(r *mux.Router) {
	r.HandleFunc("/stream", d.handleStream).Methods("GET")
	r.HandleFunc("/snapshot.jpg", d.handleSnapshot).Methods("GET")
	r.HandleFunc("/stats", d.handleStats).Methods("GET")
	r.HandleFunc("/", d.handleViewer).Methods("GET")
}

func (d *Display) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Connection", "close")

	frameChan := make(chan []byte, 2)

	d.clientsMu.Lock()
	d.clients[frameChan] = struct{}{}
	clientCount := len(d.clients)
	d.clientsMu.Unlock()

	log := logger.WithComponent("device")
	log.Info().Int("clients", clientCount).Msg("MJPEG client connected")

	defer func() {
		d.clientsMu.Lock()
		if _, ok := d.clients[frameChan]; ok {
			delete(d.clients, frameChan)
		}
		clientCount := len(d.clients)
		d.clientsMu.Unlock()
		log.Info().Int("clients", clientCount).Msg("MJPEG client disconnected")
	}()

	// start with the last frame so a paused stream is not blank
	d.frameMu.RLock()
	current := d.currentJPEG
	d.frameMu.RUnlock()
	if current != nil {
		if writePart(w, current) != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case jpegData, ok := <-frameChan:
			if !ok {
				return
			}
			if writePart(w, jpegData) != nil {
				return
			}
		}
	}
}

func writePart(w http.ResponseWriter, jpegData []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (d *Display) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	d.frameMu.RLock()
	current := d.currentJPEG
	d.frameMu.RUnlock()

	if current == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(current)
}

// Stats describes the stream.
type Stats struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Scale      int     `json:"scale"`
	Frames     uint64  `json:"frames"`
	FPS        float64 `json:"fps"`
	Clients    int     `json:"clients"`
	LastUpdate string  `json:"last_update,omitempty"`
	Uptime     string  `json:"uptime"`
}

// Stats returns a snapshot of the stream counters.
func (d *Display) Stats() Stats {
	d.statsMu.RLock()
	frameCount := d.frameCount
	startTime := d.startTime
	d.statsMu.RUnlock()

	d.frameMu.RLock()
	lastUpdate := d.lastUpdate
	d.frameMu.RUnlock()

	d.clientsMu.RLock()
	clientCount := len(d.clients)
	d.clientsMu.RUnlock()

	st := Stats{
		Width:   d.config.Panel.Width,
		Height:  d.config.Panel.Height,
		Scale:   d.config.Scale,
		Frames:  frameCount,
		Clients: clientCount,
		Uptime:  time.Since(startTime).Round(time.Second).String(),
	}
	if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
		st.FPS = float64(frameCount) / elapsed
	}
	if !lastUpdate.IsZero() {
		st.LastUpdate = lastUpdate.Format(time.RFC3339)
	}
	return st
}

func (d *Display) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d.Stats())
}

func (d *Display) handleViewer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, viewerHTML, d.out.Bounds().Dx(), d.out.Bounds().Dy())
}

const viewerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>TinyScreen</title>
    <style>
        body { background: #1e1e1e; margin: 0; min-height: 100vh; display: flex; justify-content: center; align-items: center; }
        img { image-rendering: pixelated; border: 12px solid #333; border-radius: 6px; }
        a { position: fixed; bottom: 12px; left: 12px; color: #569cd6; font-family: monospace; }
    </style>
</head>
<body>
    <img src="/stream" width="%d" height="%d" alt="display">
    <a href="/stats">stats</a>
</body>
</html>`

// Driver opens the MJPEG display. The connection is "http:<addr>", e.g.
// "http::8090". Options are the panel options of device.ParseMemoryConfig
// plus SCALE and QUALITY.
var Driver = device.Driver{
	Name:              "mjpeg",
	Description:       "emulated panel streamed as MJPEG over HTTP",
	DefaultConnection: "http::8090",
	Open: func(conn device.Connection, _ string, opts device.Options) (device.Device, error) {
		panel, err := device.ParseMemoryConfig(opts, device.DefaultMemoryConfig)
		if err != nil {
			return nil, err
		}
		cfg := Config{Panel: panel, Addr: conn.Target}
		if cfg.Scale, err = opts.Int("SCALE", 4); err != nil {
			return nil, err
		}
		if cfg.Quality, err = opts.Int("QUALITY", 90); err != nil {
			return nil, err
		}
		return New(cfg)
	},
}
