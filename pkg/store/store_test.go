package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/getfleetsim/fleetsim/pkg/events"
	"github.com/getfleetsim/fleetsim/pkg/telemetry"
)

func validDocument(name string) *Document {
	return &Document{
		Name:        name,
		Description: "test template",
		Fields: []telemetry.FieldSpec{
			{
				Name:     "value",
				Type:     telemetry.TypeFloat,
				Pattern:  telemetry.PatternLinear,
				Min:      telemetry.Float64(0),
				Max:      telemetry.Float64(100),
				StepSize: 1,
			},
		},
	}
}

func TestSaveGetListDelete(t *testing.T) {
	s, err := New("", nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Save(validDocument("ramp")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	doc, err := s.Get("ramp")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Name != "ramp" || len(doc.Fields) != 1 {
		t.Errorf("Get() = %+v, want saved document", doc)
	}

	if got := s.List(); len(got) != 1 {
		t.Errorf("List() = %d documents, want 1", len(got))
	}

	if err := s.Delete("ramp"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get("ramp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete("ramp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestSchemaRejectsInvalidDocuments(t *testing.T) {
	s, err := New("", nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		doc  *Document
	}{
		{
			name: "missing name",
			doc: &Document{
				Fields: []telemetry.FieldSpec{{Name: "v", Type: telemetry.TypeInt}},
			},
		},
		{
			name: "no fields",
			doc:  &Document{Name: "empty"},
		},
		{
			name: "bad data type",
			doc: &Document{
				Name:   "bad",
				Fields: []telemetry.FieldSpec{{Name: "v", Type: telemetry.DataType("matrix")}},
			},
		},
		{
			name: "bad pattern",
			doc: &Document{
				Name: "bad",
				Fields: []telemetry.FieldSpec{
					{Name: "v", Type: telemetry.TypeInt, Pattern: telemetry.Pattern("fractal")},
				},
			},
		},
		{
			name: "name with spaces",
			doc: &Document{
				Name:   "has spaces",
				Fields: []telemetry.FieldSpec{{Name: "v", Type: telemetry.TypeInt}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Save(tt.doc)
			if !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("Save() error = %v, want ErrInvalidTemplate", err)
			}
		})
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s1, err := New(dir, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s1.Save(validDocument("persisted")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "persisted.json")); err != nil {
		t.Fatalf("template file not written: %v", err)
	}

	// A fresh store over the same directory sees the document.
	s2, err := New(dir, nil, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	doc, err := s2.Get("persisted")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if doc.Description != "test template" {
		t.Errorf("reloaded description = %q", doc.Description)
	}

	if err := s2.Delete("persisted"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "persisted.json")); !os.IsNotExist(err) {
		t.Error("template file not removed on delete")
	}
}

func TestLoadDirSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(dir, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("List() = %d documents, want 0", len(got))
	}
}

func TestYAMLTemplateFile(t *testing.T) {
	dir := t.TempDir()
	yamlDoc := `name: yaml_sensor
description: from yaml
fields:
  - name: level
    dataType: float
    pattern: random
    minValue: 0
    maxValue: 10
`
	if err := os.WriteFile(filepath.Join(dir, "yaml_sensor.yaml"), []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(dir, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	doc, err := s.Get("yaml_sensor")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Fields[0].Name != "level" || doc.Fields[0].Type != telemetry.TypeFloat {
		t.Errorf("parsed field = %+v", doc.Fields[0])
	}
}

func TestTemplateEvents(t *testing.T) {
	bus := events.NewBus(nil)

	var mu sync.Mutex
	seen := map[events.Type]int{}
	for _, et := range []events.Type{events.TemplateCreated, events.TemplateUpdated, events.TemplateDeleted} {
		et := et
		bus.Subscribe(et, func(events.Event) {
			mu.Lock()
			seen[et]++
			mu.Unlock()
		})
	}

	s, err := New("", bus, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Save(validDocument("ev")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(validDocument("ev")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("ev"); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[events.TemplateCreated] != 1 || seen[events.TemplateUpdated] != 1 || seen[events.TemplateDeleted] != 1 {
		t.Errorf("events = %v, want one of each", seen)
	}
}

func TestSeedBuiltinsAndToTemplate(t *testing.T) {
	s, err := New("", nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.SeedBuiltins()

	tmpl, err := s.Template("temperature_sensor")
	if err != nil {
		t.Fatalf("Template() error = %v", err)
	}

	msg := tmpl.GenerateMessage()
	if _, ok := msg["temperature"]; !ok {
		t.Error("builtin template did not generate temperature")
	}

	// Seeding again does not clobber a user-saved document.
	custom := validDocument("temperature_sensor")
	if err := s.Save(custom); err != nil {
		t.Fatal(err)
	}
	s.SeedBuiltins()
	doc, _ := s.Get("temperature_sensor")
	if doc.Description != "test template" {
		t.Error("SeedBuiltins overwrote a user document")
	}
}
