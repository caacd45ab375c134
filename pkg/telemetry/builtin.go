package telemetry

// BuiltinTemplates returns the templates that ship with the simulator:
// a temperature/humidity sensor and a motion sensor. Additional templates
// are registered through the template store without changes here.
func BuiltinTemplates() []*Template {
	temp := NewTemplate("temperature_sensor", "Temperature and humidity sensor")
	temp.AddField(FieldSpec{
		Name:      "temperature",
		Type:      TypeFloat,
		Pattern:   PatternSineWave,
		Min:       Float64(15.0),
		Max:       Float64(35.0),
		Amplitude: 10.0,
		Frequency: 0.1,
		Mean:      22.5,
	})
	temp.AddField(FieldSpec{
		Name:    "humidity",
		Type:    TypeFloat,
		Pattern: PatternGaussian,
		Min:     Float64(30.0),
		Max:     Float64(80.0),
		Mean:    55.0,
		StdDev:  10.0,
	})

	motion := NewTemplate("motion_sensor", "Motion detection sensor")
	motion.AddField(FieldSpec{
		Name:    "motion_detected",
		Type:    TypeBool,
		Pattern: PatternRandom,
	})
	motion.AddField(FieldSpec{
		Name:    "confidence",
		Type:    TypeFloat,
		Pattern: PatternRandom,
		Min:     Float64(0.0),
		Max:     Float64(1.0),
	})

	return []*Template{temp, motion}
}
