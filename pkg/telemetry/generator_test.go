package telemetry

import (
	"math"
	"testing"
	"time"
)

func TestGenerateNumericPatterns(t *testing.T) {
	tests := []struct {
		name  string
		field FieldSpec
		steps int
		check func(t *testing.T, values []any)
	}{
		{
			name: "constant float",
			field: FieldSpec{
				Name:     "pressure",
				Type:     TypeFloat,
				Pattern:  PatternConstant,
				Constant: 101.325,
			},
			steps: 3,
			check: func(t *testing.T, values []any) {
				for _, v := range values {
					if v.(float64) != 101.33 {
						t.Errorf("constant = %v, want 101.33", v)
					}
				}
			},
		},
		{
			name: "random stays within bounds",
			field: FieldSpec{
				Name:    "level",
				Type:    TypeFloat,
				Pattern: PatternRandom,
				Min:     Float64(10),
				Max:     Float64(20),
			},
			steps: 100,
			check: func(t *testing.T, values []any) {
				for _, v := range values {
					f := v.(float64)
					if f < 10 || f > 20 {
						t.Errorf("random value %v outside [10,20]", f)
					}
				}
			},
		},
		{
			name: "random defaults to 0..100",
			field: FieldSpec{
				Name:    "level",
				Type:    TypeFloat,
				Pattern: PatternRandom,
			},
			steps: 100,
			check: func(t *testing.T, values []any) {
				for _, v := range values {
					f := v.(float64)
					if f < 0 || f > 100 {
						t.Errorf("random value %v outside [0,100]", f)
					}
				}
			},
		},
		{
			name: "sine wave oscillates around mean",
			field: FieldSpec{
				Name:      "temp",
				Type:      TypeFloat,
				Pattern:   PatternSineWave,
				Mean:      20,
				Amplitude: 5,
				Frequency: 1,
			},
			steps: 100,
			check: func(t *testing.T, values []any) {
				var sum float64
				for _, v := range values {
					f := v.(float64)
					if f < 15 || f > 25 {
						t.Errorf("sine value %v outside [15,25]", f)
					}
					sum += f
				}
				mean := sum / float64(len(values))
				if math.Abs(mean-20) > 0.5 {
					t.Errorf("sine mean over full period = %v, want ~20", mean)
				}
			},
		},
		{
			name: "gaussian clamped to bounds",
			field: FieldSpec{
				Name:    "humidity",
				Type:    TypeFloat,
				Pattern: PatternGaussian,
				Mean:    50,
				StdDev:  30,
				Min:     Float64(40),
				Max:     Float64(60),
			},
			steps: 200,
			check: func(t *testing.T, values []any) {
				for _, v := range values {
					f := v.(float64)
					if f < 40 || f > 60 {
						t.Errorf("gaussian value %v outside clamp [40,60]", f)
					}
				}
			},
		},
		{
			name: "int values are truncated",
			field: FieldSpec{
				Name:     "count",
				Type:     TypeInt,
				Pattern:  PatternConstant,
				Constant: 41.9,
			},
			steps: 1,
			check: func(t *testing.T, values []any) {
				if values[0].(int64) != 41 {
					t.Errorf("int value = %v, want 41", values[0])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := NewTemplate("test", "")
			tmpl.AddField(tt.field)

			values := make([]any, 0, tt.steps)
			for i := 0; i < tt.steps; i++ {
				msg := tmpl.GenerateMessage()
				values = append(values, msg[tt.field.Name])
			}
			tt.check(t, values)
		})
	}
}

func TestLinearWrapsAndResetsCounter(t *testing.T) {
	tmpl := NewTemplate("test", "")
	tmpl.AddField(FieldSpec{
		Name:     "ramp",
		Type:     TypeFloat,
		Pattern:  PatternLinear,
		Min:      Float64(0),
		Max:      Float64(2),
		StepSize: 1,
	})

	// Steps 0,1,2 produce 0,1,2; step 3 exceeds max, wraps to min and
	// rewinds the counter.
	want := []float64{0, 1, 2, 0, 1, 2, 0}
	for i, w := range want {
		msg := tmpl.GenerateMessage()
		if got := msg["ramp"].(float64); got != w {
			t.Fatalf("message %d: ramp = %v, want %v", i, got, w)
		}
	}
}

func TestLinearWithoutMaxNeverWraps(t *testing.T) {
	tmpl := NewTemplate("test", "")
	tmpl.AddField(FieldSpec{
		Name:     "ramp",
		Type:     TypeFloat,
		Pattern:  PatternLinear,
		StepSize: 2,
	})

	var last float64 = -1
	for i := 0; i < 50; i++ {
		msg := tmpl.GenerateMessage()
		got := msg["ramp"].(float64)
		if got <= last && i > 0 {
			t.Fatalf("message %d: ramp %v did not increase past %v", i, got, last)
		}
		last = got
	}
}

func TestFloatRoundedToTwoDecimals(t *testing.T) {
	tmpl := NewTemplate("test", "")
	tmpl.AddField(FieldSpec{
		Name:     "v",
		Type:     TypeFloat,
		Pattern:  PatternConstant,
		Constant: 3.14159,
	})

	msg := tmpl.GenerateMessage()
	if got := msg["v"].(float64); got != 3.14 {
		t.Errorf("float = %v, want 3.14", got)
	}
}

func TestUnknownTypeYieldsNil(t *testing.T) {
	tmpl := NewTemplate("test", "")
	tmpl.AddField(FieldSpec{Name: "weird", Type: DataType("quaternion")})

	msg := tmpl.GenerateMessage()
	if v, ok := msg["weird"]; !ok || v != nil {
		t.Errorf("unknown type value = %v (present %v), want nil present", v, ok)
	}
	// The rest of the message is still produced.
	if _, ok := msg["timestamp"]; !ok {
		t.Error("timestamp missing after unknown-type field")
	}
}

func TestSpecialTypes(t *testing.T) {
	tmpl := NewTemplate("test", "")
	tmpl.AddField(FieldSpec{Name: "ts", Type: TypeTimestamp})
	tmpl.AddField(FieldSpec{Name: "id", Type: TypeUUID})
	tmpl.AddField(FieldSpec{Name: "pos", Type: TypeLocation})
	tmpl.AddField(FieldSpec{Name: "flag", Type: TypeBool, Pattern: PatternConstant, Constant: true})

	msg := tmpl.GenerateMessage()

	ts, ok := msg["ts"].(string)
	if !ok {
		t.Fatalf("ts is %T, want string", msg["ts"])
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		t.Errorf("ts %q is not RFC3339: %v", ts, err)
	}

	id, ok := msg["id"].(string)
	if !ok || len(id) != 36 {
		t.Errorf("id = %v, want 36-char uuid string", msg["id"])
	}

	pos, ok := msg["pos"].(map[string]float64)
	if !ok {
		t.Fatalf("pos is %T, want map[string]float64", msg["pos"])
	}
	if lat := pos["latitude"]; lat < -90 || lat > 90 {
		t.Errorf("latitude %v out of range", lat)
	}
	if lon := pos["longitude"]; lon < -180 || lon > 180 {
		t.Errorf("longitude %v out of range", lon)
	}

	if msg["flag"] != true {
		t.Errorf("flag = %v, want true", msg["flag"])
	}
}

func TestExpressionField(t *testing.T) {
	tmpl := NewTemplate("test", "")
	tmpl.AddField(FieldSpec{
		Name:     "base",
		Type:     TypeFloat,
		Pattern:  PatternConstant,
		Constant: 10.0,
	})
	tmpl.AddField(FieldSpec{
		Name:       "derived",
		Type:       TypeFloat,
		Pattern:    PatternExpression,
		Expression: "base * 2 + step",
	})

	first := tmpl.GenerateMessage()
	if got := first["derived"].(float64); got != 20 {
		t.Errorf("step 0: derived = %v, want 20", got)
	}
	second := tmpl.GenerateMessage()
	if got := second["derived"].(float64); got != 21 {
		t.Errorf("step 1: derived = %v, want 21", got)
	}
}

func TestBrokenExpressionYieldsNil(t *testing.T) {
	tmpl := NewTemplate("test", "")
	tmpl.AddField(FieldSpec{
		Name:       "bad",
		Type:       TypeFloat,
		Pattern:    PatternExpression,
		Expression: "((",
	})

	msg := tmpl.GenerateMessage()
	if msg["bad"] != nil {
		t.Errorf("broken expression = %v, want nil", msg["bad"])
	}
}

func TestRandomStringUsesWordLists(t *testing.T) {
	tmpl := NewTemplate("test", "")
	tmpl.AddField(FieldSpec{Name: "status", Type: TypeString, Pattern: PatternRandom})

	msg := tmpl.GenerateMessage()
	s, ok := msg["status"].(string)
	if !ok || s == "" {
		t.Errorf("status = %v, want non-empty string", msg["status"])
	}
}
