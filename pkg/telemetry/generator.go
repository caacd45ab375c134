package telemetry

import (
	"math"
	mathrand "math/rand/v2"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"
)

// Pattern parameter defaults, applied when a FieldSpec leaves them zero.
const (
	defaultStepSize  = 0.1
	defaultAmplitude = 1.0
	defaultFrequency = 1.0
	defaultStdDev    = 1.0
)

// generateValue produces one value for a field. msg holds the values of
// fields already generated for the current message, which expression fields
// may reference. Unknown types and broken expressions yield nil; they are
// logged and never abort generation of the rest of the message.
//
// Callers hold t.mu.
func (t *Template) generateValue(f *FieldSpec, msg map[string]any) any {
	switch f.Type {
	case TypeTimestamp:
		return isoNow()

	case TypeUUID:
		return uuid.NewString()

	case TypeLocation:
		return map[string]float64{
			"latitude":  -90 + mathrand.Float64()*180,
			"longitude": -180 + mathrand.Float64()*360,
		}

	case TypeBool:
		if f.Pattern == PatternConstant {
			return asBool(f.Constant)
		}
		return mathrand.IntN(2) == 1

	case TypeString:
		return t.generateString(f)

	case TypeInt, TypeFloat:
		return t.generateNumeric(f, msg)

	default:
		t.log.Warn("unknown field data type", "field", f.Name, "dataType", string(f.Type))
		return nil
	}
}

// generateString produces a string value. Random strings draw from the
// curated word lists in words.go, keyed loosely by field name; other
// non-constant patterns fall back to a step-counter placeholder.
func (t *Template) generateString(f *FieldSpec) string {
	switch f.Pattern {
	case PatternConstant:
		if f.Constant == nil {
			return ""
		}
		if s, ok := f.Constant.(string); ok {
			return s
		}
		return ""

	case PatternRandom:
		return randomWord(f.Name)

	default:
		return placeholder(f.Name, t.step)
	}
}

// generateNumeric produces an int or float value following the field's
// pattern. Integer results are truncated; float results are rounded to two
// decimal places.
func (t *Template) generateNumeric(f *FieldSpec, msg map[string]any) any {
	var value float64

	switch f.Pattern {
	case PatternConstant:
		value = asFloat(f.Constant)

	case PatternRandom:
		lo := f.minOr(0)
		hi := f.maxOr(100)
		value = lo + mathrand.Float64()*(hi-lo)

	case PatternSineWave:
		amplitude := f.Amplitude
		if amplitude == 0 {
			amplitude = defaultAmplitude
		}
		frequency := f.Frequency
		if frequency == 0 {
			frequency = defaultFrequency
		}
		value = f.Mean + amplitude*math.Sin(2*math.Pi*frequency*float64(t.step)/100)

	case PatternLinear:
		start := f.minOr(0)
		step := f.StepSize
		if step == 0 {
			step = defaultStepSize
		}
		value = start + step*float64(t.step)

		// Wrap once the ramp exceeds the upper bound; the template's shared
		// counter rewinds with it.
		if f.Max != nil && value > *f.Max {
			value = f.minOr(0)
			t.step = 0
		}

	case PatternGaussian:
		stdDev := f.StdDev
		if stdDev == 0 {
			stdDev = defaultStdDev
		}
		value = f.Mean + stdDev*mathrand.NormFloat64()

		if f.Min != nil && value < *f.Min {
			value = *f.Min
		}
		if f.Max != nil && value > *f.Max {
			value = *f.Max
		}

	case PatternExpression:
		res := t.evalExpression(f, msg)
		if res == nil {
			return nil
		}
		value = asFloat(res)

	default:
		value = 0
	}

	if f.Type == TypeInt {
		return int64(value)
	}
	return math.Round(value*100) / 100
}

// evalExpression compiles (once) and runs an expression field. The
// environment exposes `step` and every field generated earlier in the
// current message.
func (t *Template) evalExpression(f *FieldSpec, msg map[string]any) any {
	if f.Expression == "" {
		t.log.Warn("expression field has no expression", "field", f.Name)
		return nil
	}

	program, ok := t.programs[f.Expression]
	if !ok {
		var err error
		program, err = expr.Compile(f.Expression)
		if err != nil {
			t.log.Warn("failed to compile field expression",
				"field", f.Name, "expression", f.Expression, "error", err)
			return nil
		}
		t.programs[f.Expression] = program
	}

	env := make(map[string]any, len(msg)+1)
	for k, v := range msg {
		env[k] = v
	}
	env["step"] = t.step

	out, err := expr.Run(program, env)
	if err != nil {
		t.log.Warn("failed to evaluate field expression",
			"field", f.Name, "expression", f.Expression, "error", err)
		return nil
	}
	return out
}

// asFloat coerces a constant value to float64, defaulting to 0.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	default:
		return 0
	}
}

// asBool coerces a constant value to bool, defaulting to false.
func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	case int:
		return b != 0
	case float64:
		return b != 0
	default:
		return false
	}
}
