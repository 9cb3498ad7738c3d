package fusion

// ButtonID enumerates the buttons the host event bus understands.
type ButtonID int

const (
	ButtonA ButtonID = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonBack
	ButtonGuide
	ButtonStart
	ButtonLStick
	ButtonRStick
	ButtonLB
	ButtonRB
	ButtonDPadUp
	ButtonDPadDown
	ButtonDPadLeft
	ButtonDPadRight
)

// AxisID enumerates the axes the host event bus understands. Axis values
// are centered at 0; triggers range from -0x8000 (released) to 0x7FFF
// (fully pressed).
type AxisID int

const (
	AxisLX AxisID = iota
	AxisLY
	AxisRX
	AxisRY
	AxisTriggerLeft
	AxisTriggerRight
)

// EventSink is the host event bus the fusion engine publishes to. It is an
// external collaborator (spec.md §6): the engine never buffers or replays
// events, it only calls straight through.
type EventSink interface {
	EmitButton(controllerID int, button ButtonID, pressed bool)
	EmitAxis(controllerID int, axis AxisID, value int16)
	EmitAdded(instanceID int)
	EmitRemoved(instanceID int)
}
