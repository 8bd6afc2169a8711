package recreate

const (
	EventEngage        = "Engage"
	EventDisengage     = "Disengage"
	EventVisible       = "Visible"
	EventPatrolPlanned = "PatrolPlanned"
	EventLegComplete   = "LegComplete"
	EventPlanFailed    = "PlanFailed"
)

// Event is a notable state change of one platoon during replay.
type Event struct {
	Tick    int            `json:"tick"`
	Type    string         `json:"type"`
	Platoon string         `json:"platoon"`
	Payload map[string]any `json:"payload,omitempty"`
}
