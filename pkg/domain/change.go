package domain

// Action describes the mutation applied to a record.
type Action string

// Supported change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change records one mutation captured inside a transaction.
type Change struct {
	Entity EntityType `json:"entity"`
	Action Action     `json:"action"`
	ID     int64      `json:"id"`
}

// CountBy returns how many changes match entity and action.
func CountBy(changes []Change, entity EntityType, action Action) int {
	n := 0
	for _, c := range changes {
		if c.Entity == entity && c.Action == action {
			n++
		}
	}
	return n
}
