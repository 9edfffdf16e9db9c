package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
)

// Handler cancels the run on SIGINT/SIGTERM and removes any temporary
// sample files still registered at that moment.
type Handler struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cleanupFns []func()
	temp       map[string]struct{}
	mu         sync.Mutex
	once       sync.Once
}

// New creates a new shutdown handler
func New() *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		ctx:    ctx,
		cancel: cancel,
		temp:   make(map[string]struct{}),
	}
}

// Context returns the run context, cancelled on shutdown.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// AddCleanup registers a function to run on shutdown.
func (h *Handler) AddCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFns = append(h.cleanupFns, fn)
}

// Track registers a temporary file owned by an in-flight task.
func (h *Handler) Track(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.temp[path] = struct{}{}
}

// Untrack forgets a temporary file after its owner removed it.
func (h *Handler) Untrack(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.temp, path)
}

// Tracked returns the registered temporary files in sorted order.
func (h *Handler) Tracked() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	paths := make([]string, 0, len(h.temp))
	for p := range h.temp {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Listen starts listening for shutdown signals
func (h *Handler) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		h.Shutdown()
	}()
}

// Shutdown cancels the context, removes tracked temp files and runs the
// cleanup functions. Only the first call has any effect.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.cancel()

		for _, p := range h.Tracked() {
			os.Remove(p)
			h.Untrack(p)
		}

		h.mu.Lock()
		fns := h.cleanupFns
		h.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
	})
}
