package workflow

// Trigger represents an event that can cause a status transition
type Trigger string

const (
	TriggerStart     Trigger = "START"
	TriggerReset     Trigger = "RESET"
	TriggerDeliver   Trigger = "DELIVER"
	TriggerTerminate Trigger = "TERMINATE"
	TriggerSupervise Trigger = "SUPERVISE"
)

var triggerTargets = map[State]Trigger{
	StateInProgress:       TriggerStart,
	StateNew:              TriggerReset,
	StateDelivered:        TriggerDeliver,
	StateTerminated:       TriggerTerminate,
	StateUnderSupervision: TriggerSupervise,
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// TriggerFor returns the trigger that leads into the target status
func TriggerFor(target State) (Trigger, bool) {
	t, ok := triggerTargets[target]
	return t, ok
}
