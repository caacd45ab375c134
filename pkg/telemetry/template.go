package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/expr-lang/expr/vm"
	"github.com/getfleetsim/fleetsim/pkg/logging"
)

// Template is a named, ordered set of field specifications. Each instance
// owns a single step counter shared by all fields' pattern math; the counter
// advances exactly once per generated message.
//
// A Template is safe for use from a single goroutine at a time per message;
// GenerateMessage serializes internally so a shared instance still produces
// consistent step sequences.
type Template struct {
	Name        string
	Description string

	mu       sync.Mutex
	fields   []FieldSpec
	step     int
	programs map[string]*vm.Program
	log      *slog.Logger
}

// NewTemplate creates an empty template.
func NewTemplate(name, description string) *Template {
	return &Template{
		Name:        name,
		Description: description,
		programs:    make(map[string]*vm.Program),
		log:         logging.Nop(),
	}
}

// SetLogger sets the logger used for generation warnings.
func (t *Template) SetLogger(log *slog.Logger) {
	if log != nil {
		t.log = log
	}
}

// AddField appends a field specification to the template.
func (t *Template) AddField(f FieldSpec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fields = append(t.fields, f)
}

// Fields returns a copy of the field specifications in declaration order.
func (t *Template) Fields() []FieldSpec {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]FieldSpec, len(t.fields))
	copy(out, t.fields)
	return out
}

// Step returns the current value of the shared step counter.
func (t *Template) Step() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.step
}

// Clone returns a fresh template instance with the same fields and a zeroed
// step counter. Device simulations each own a private clone so their pattern
// phases advance independently.
func (t *Template) Clone() *Template {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := NewTemplate(t.Name, t.Description)
	c.fields = make([]FieldSpec, len(t.fields))
	copy(c.fields, t.fields)
	c.log = t.log
	return c
}

// GenerateMessage produces one telemetry record by evaluating every field in
// declaration order against the shared step counter. A `timestamp` field is
// injected if no field produced one. The counter increments once,
// after all fields have been evaluated.
func (t *Template) GenerateMessage() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := make(map[string]any, len(t.fields)+1)
	for i := range t.fields {
		f := &t.fields[i]
		msg[f.Name] = t.generateValue(f, msg)
	}

	if _, ok := msg["timestamp"]; !ok {
		msg["timestamp"] = isoNow()
	}

	t.step++
	return msg
}

func isoNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
