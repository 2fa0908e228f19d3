package govfslog

import "time"

// Tracer emits structured start/stop events for scoped activities, the way
// spec.md §9 describes "RAII-like scoped handles whose drop emits the
// activity's end event." It is an injected collaborator, never a global.
type Tracer interface {
	// StartActivity begins a named activity with the given metadata and
	// returns a handle whose Stop ends it. Stop must be safe to call more
	// than once; only the first call emits the end event.
	StartActivity(name string, metadata map[string]interface{}) Activity
}

// Activity is a single scoped trace span.
type Activity interface {
	// Stop ends the activity, recording elapsed time and any metadata
	// accumulated via AddMetadata.
	Stop()
	// AddMetadata attaches an additional key/value pair to the activity's
	// end event.
	AddMetadata(key string, value interface{})
}

// LogTracer implements Tracer on top of a Logger, emitting a start line and
// a matching end line carrying elapsed duration and metadata.
type LogTracer struct {
	Logger Logger
}

// NewLogTracer builds a Tracer backed by logger.
func NewLogTracer(logger Logger) *LogTracer {
	return &LogTracer{Logger: logger}
}

func (t *LogTracer) StartActivity(name string, metadata map[string]interface{}) Activity {
	t.Logger.Debugf(name, "activity started %v", metadata)
	return &logActivity{
		tracer:   t,
		name:     name,
		start:    time.Now(),
		metadata: cloneMetadata(metadata),
	}
}

type logActivity struct {
	tracer   *LogTracer
	name     string
	start    time.Time
	metadata map[string]interface{}
	stopped  bool
}

func (a *logActivity) AddMetadata(key string, value interface{}) {
	if a.metadata == nil {
		a.metadata = make(map[string]interface{})
	}
	a.metadata[key] = value
}

func (a *logActivity) Stop() {
	if a.stopped {
		return
	}
	a.stopped = true
	elapsed := time.Since(a.start)
	a.tracer.Logger.Debugf(a.name, "activity finished in %s metadata=%v", elapsed, a.metadata)
}

func cloneMetadata(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// NoopTracer discards every activity; useful for tests and for components
// that have no tracer wired in.
var NoopTracer Tracer = noopTracer{}

type noopTracer struct{}

func (noopTracer) StartActivity(string, map[string]interface{}) Activity { return noopActivity{} }

type noopActivity struct{}

func (noopActivity) Stop()                          {}
func (noopActivity) AddMetadata(string, interface{}) {}
