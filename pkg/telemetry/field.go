package telemetry

// DataType is the value type a field produces.
type DataType string

// Supported field data types.
const (
	TypeString    DataType = "string"
	TypeInt       DataType = "int"
	TypeFloat     DataType = "float"
	TypeBool      DataType = "bool"
	TypeTimestamp DataType = "timestamp"
	TypeUUID      DataType = "uuid"
	TypeLocation  DataType = "location"
)

// Pattern is the generation pattern applied to a field.
type Pattern string

// Supported generation patterns.
const (
	PatternConstant   Pattern = "constant"
	PatternRandom     Pattern = "random"
	PatternSineWave   Pattern = "sine_wave"
	PatternLinear     Pattern = "linear"
	PatternGaussian   Pattern = "gaussian"
	PatternExpression Pattern = "expression"
)

// FieldSpec describes a single telemetry field. It is a plain value record;
// zero pattern parameters fall back to defaults at generation time.
type FieldSpec struct {
	Name      string   `json:"name" yaml:"name"`
	Type      DataType `json:"dataType" yaml:"dataType"`
	Pattern   Pattern  `json:"pattern" yaml:"pattern"`
	Min       *float64 `json:"minValue,omitempty" yaml:"minValue,omitempty"`
	Max       *float64 `json:"maxValue,omitempty" yaml:"maxValue,omitempty"`
	Constant  any      `json:"constantValue,omitempty" yaml:"constantValue,omitempty"`
	StepSize  float64  `json:"stepSize,omitempty" yaml:"stepSize,omitempty"`
	Amplitude float64  `json:"amplitude,omitempty" yaml:"amplitude,omitempty"`
	Frequency float64  `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Mean      float64  `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev    float64  `json:"stdDev,omitempty" yaml:"stdDev,omitempty"`

	// Expression holds the source for PatternExpression fields. It may
	// reference `step` and any field generated earlier in the same message.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Float64 returns a pointer to v. Convenience for building FieldSpec bounds.
func Float64(v float64) *float64 { return &v }

// minOr returns the configured minimum or the fallback.
func (f *FieldSpec) minOr(fallback float64) float64 {
	if f.Min != nil {
		return *f.Min
	}
	return fallback
}

// maxOr returns the configured maximum or the fallback.
func (f *FieldSpec) maxOr(fallback float64) float64 {
	if f.Max != nil {
		return *f.Max
	}
	return fallback
}
