// Package telemetry generates synthetic device telemetry from message
// templates.
//
// A Template is a named, ordered list of field specifications. Each call to
// GenerateMessage produces one record by evaluating every field against the
// template's shared step counter, which advances once per message. Field
// values follow configurable patterns: constants, uniform random draws, sine
// waves, linear ramps with wrap-around, gaussian noise, and computed
// expressions.
//
// Generation never fails hard: a field with an unknown type or a broken
// expression yields a nil value and a logged warning, and the rest of the
// message is still produced.
package telemetry
