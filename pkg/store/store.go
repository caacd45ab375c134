// Package store persists telemetry template definitions on disk and keeps
// an in-memory registry of them. Documents are validated against a JSON
// Schema before they are accepted, and every mutation emits a template
// event on the bus.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/getfleetsim/fleetsim/pkg/events"
	"github.com/getfleetsim/fleetsim/pkg/logging"
	"github.com/getfleetsim/fleetsim/pkg/telemetry"
)

var (
	// ErrNotFound is returned when a template name is not in the store.
	ErrNotFound = errors.New("template not found")

	// ErrInvalidTemplate is returned when a document fails schema validation.
	ErrInvalidTemplate = errors.New("invalid template")
)

// Document is the persisted form of a telemetry template.
type Document struct {
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []telemetry.FieldSpec `json:"fields" yaml:"fields"`
}

// ToTemplate builds a runtime template from the document. The returned
// template starts with a fresh pattern state.
func (d *Document) ToTemplate() *telemetry.Template {
	t := telemetry.NewTemplate(d.Name, d.Description)
	for _, f := range d.Fields {
		t.AddField(f)
	}
	return t
}

// Store is a directory-backed template registry.
type Store struct {
	dir    string
	schema *jsonschema.Schema
	bus    *events.Bus
	log    *slog.Logger

	mu   sync.RWMutex
	docs map[string]*Document
}

// New opens a store rooted at dir, creating the directory when missing and
// loading any template files already present. bus may be nil.
func New(dir string, bus *events.Bus, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}

	schema, err := compileTemplateSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile template schema: %w", err)
	}

	s := &Store{
		dir:    dir,
		schema: schema,
		bus:    bus,
		log:    log,
		docs:   make(map[string]*Document),
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create template directory: %w", err)
		}
		if err := s.loadDir(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// loadDir reads every .json, .yaml, and .yml file in the store directory.
// Files that fail to parse or validate are skipped with a warning so one
// bad file does not block startup.
func (s *Store) loadDir() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read template directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		doc, err := readDocument(path)
		if err != nil {
			s.log.Warn("skipping template file", "path", path, "error", err)
			continue
		}
		if err := s.validateDocument(doc); err != nil {
			s.log.Warn("skipping invalid template file", "path", path, "error", err)
			continue
		}

		s.docs[doc.Name] = doc
		s.log.Debug("template loaded", "name", doc.Name, "path", path)
	}
	return nil
}

// readDocument parses a template file, choosing the codec by extension.
func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	return &doc, nil
}

// Save validates and stores a document, persisting it when the store has a
// directory. An existing document with the same name is replaced.
func (s *Store) Save(doc *Document) error {
	if err := s.validateDocument(doc); err != nil {
		return err
	}

	s.mu.Lock()
	_, existed := s.docs[doc.Name]
	s.docs[doc.Name] = doc
	s.mu.Unlock()

	if s.dir != "" {
		if err := s.writeFile(doc); err != nil {
			return err
		}
	}

	eventType := events.TemplateCreated
	if existed {
		eventType = events.TemplateUpdated
	}
	s.emit(eventType, doc.Name)
	s.log.Info("template saved", "name", doc.Name)
	return nil
}

// writeFile persists a document as JSON via a temp file and rename so a
// crash mid-write never leaves a truncated template.
func (s *Store) writeFile(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}

	path := filepath.Join(s.dir, doc.Name+".json")
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename template file: %w", err)
	}
	return nil
}

// Get returns the document with the given name.
func (s *Store) Get(name string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return doc, nil
}

// List returns all documents sorted by name.
func (s *Store) List() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes a document from the registry and from disk.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	_, ok := s.docs[name]
	if ok {
		delete(s.docs, name)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if s.dir != "" {
		path := filepath.Join(s.dir, name+".json")
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove template file: %w", err)
		}
	}

	s.emit(events.TemplateDeleted, name)
	s.log.Info("template deleted", "name", name)
	return nil
}

// Template resolves a name to a runtime template.
func (s *Store) Template(name string) (*telemetry.Template, error) {
	doc, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	return doc.ToTemplate(), nil
}

// SeedBuiltins registers the built-in templates without persisting them,
// skipping any name already present in the store.
func (s *Store) SeedBuiltins() {
	for _, tmpl := range telemetry.BuiltinTemplates() {
		s.mu.Lock()
		if _, exists := s.docs[tmpl.Name]; !exists {
			s.docs[tmpl.Name] = &Document{
				Name:        tmpl.Name,
				Description: tmpl.Description,
				Fields:      tmpl.Fields(),
			}
		}
		s.mu.Unlock()
	}
}

func (s *Store) emit(t events.Type, name string) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(t, "template-store", map[string]any{"name": name})
}
