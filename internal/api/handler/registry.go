package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinical-meteor/checklist-manifesto/internal/api/metrics"
)

// MethodRegistry is the explicit dispatch table for remote-callable methods.
// Every method is registered by wire name at startup; there is no dynamic or
// reflective dispatch. Registration after the server starts serving is not
// supported.
type MethodRegistry struct {
	methods map[string]echo.HandlerFunc
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{methods: make(map[string]echo.HandlerFunc)}
}

// Register binds a wire method name to its handler. Registering the same
// name twice panics: duplicate registrations are a wiring bug, not a
// runtime condition.
func (r *MethodRegistry) Register(name string, h echo.HandlerFunc) {
	if _, exists := r.methods[name]; exists {
		panic("method registered twice: " + name)
	}
	r.methods[name] = h
}

// Names returns the registered method names, sorted, for startup logging.
func (r *MethodRegistry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch routes POST /api/method/:name to the registered handler and
// records call metrics. Unknown names fail with the method-not-found wire
// error.
func (r *MethodRegistry) Dispatch(c echo.Context) error {
	name := c.Param("name")
	h, ok := r.methods[name]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "method-not-found")
	}

	start := time.Now()
	err := h(c)
	metrics.MethodDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.MethodCallsTotal.WithLabelValues(name, result).Inc()
	return err
}
