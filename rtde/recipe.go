package rtde

import "strings"

// Field is one named entry of an RTDE recipe. Count is the number of
// big-endian doubles the field occupies in a DataPackage payload: 6 for
// VECTOR6D fields, 1 for scalars.
type Field struct {
	Name  string
	Count int
}

// Output fields requested from the controller, in subscription order.
// The negotiation may reduce this set on older firmware.
const (
	FieldActualQ             = "actual_q"
	FieldActualTCPPose       = "actual_TCP_pose"
	FieldSpeedScaling        = "speed_scaling"
	FieldTargetSpeedFraction = "target_speed_fraction"
	FieldRobotMode           = "robot_mode"
	FieldSafetyMode          = "safety_mode"
	FieldRuntimeState        = "runtime_state"
)

// DefaultOutputFields returns the full output subscription the client asks
// for. The slice is freshly allocated on each call so callers may trim it.
func DefaultOutputFields() []Field {
	return []Field{
		{Name: FieldActualQ, Count: 6},
		{Name: FieldActualTCPPose, Count: 6},
		{Name: FieldSpeedScaling, Count: 1},
		{Name: FieldTargetSpeedFraction, Count: 1},
		{Name: FieldRobotMode, Count: 1},
		{Name: FieldSafetyMode, Count: 1},
		{Name: FieldRuntimeState, Count: 1},
	}
}

// notFoundType is the variable type the controller reports for a field it
// does not know.
const notFoundType = "NOT_FOUND"

// Recipe is a negotiated, ordered field set identified by the numeric id the
// controller assigned during setup. A Recipe is immutable after the
// handshake and is dropped on disconnect.
type Recipe struct {
	ID     byte
	Fields []Field
}

// ValueCount returns the number of doubles a DataPackage for this recipe
// carries.
func (r *Recipe) ValueCount() int {
	n := 0
	for _, f := range r.Fields {
		n += f.Count
	}

	return n
}

// Index returns the value offset and count of the named field within a
// decoded DataPackage, and whether the field is part of the recipe.
func (r *Recipe) Index(name string) (offset, count int, ok bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return offset, f.Count, true
		}
		offset += f.Count
	}

	return 0, 0, false
}

// Has reports whether the named field survived negotiation.
func (r *Recipe) Has(name string) bool {
	_, _, ok := r.Index(name)
	return ok
}

// fieldNames joins field names with commas, the wire representation used by
// setup requests.
func fieldNames(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	return strings.Join(names, ",")
}
