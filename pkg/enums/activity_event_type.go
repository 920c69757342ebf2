package enums

import "fmt"

// ActivityEventType maps to the activity_event_type enum in Postgres.
type ActivityEventType string

const (
	ActivityReceive             ActivityEventType = "receive"
	ActivityReturn              ActivityEventType = "return"
	ActivityIssue               ActivityEventType = "issue"
	ActivityProjectAllocation   ActivityEventType = "project-allocation"
	ActivityProjectDeallocation ActivityEventType = "project-deallocation"
	ActivityProductCreated      ActivityEventType = "product-created"
	ActivityProductDeleted      ActivityEventType = "product-deleted"
	ActivityProjectCreated      ActivityEventType = "project-created"
	ActivityProjectStatusChange ActivityEventType = "project-status-change"
	ActivityProjectTeamChange   ActivityEventType = "project-team-change"
	ActivityCreatePart          ActivityEventType = "create_part"
)

var validActivityEventTypes = []ActivityEventType{
	ActivityReceive,
	ActivityReturn,
	ActivityIssue,
	ActivityProjectAllocation,
	ActivityProjectDeallocation,
	ActivityProductCreated,
	ActivityProductDeleted,
	ActivityProjectCreated,
	ActivityProjectStatusChange,
	ActivityProjectTeamChange,
	ActivityCreatePart,
}

// activityDirections is the fixed sign applied to qty when replaying the ledger.
// Event types missing from the table do not move inventory.
var activityDirections = map[ActivityEventType]int{
	ActivityReceive:             1,
	ActivityReturn:              1,
	ActivityProjectDeallocation: 1,
	ActivityIssue:               -1,
	ActivityProjectAllocation:   -1,
}

// IsValid reports whether the value matches the canonical activity event enum.
func (t ActivityEventType) IsValid() bool {
	for _, candidate := range validActivityEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Direction returns +1, -1 or 0: the sign of the event's effect on availability.
func (t ActivityEventType) Direction() int {
	return activityDirections[t]
}

// AffectsInventory reports whether the event moves a part balance.
func (t ActivityEventType) AffectsInventory() bool {
	return t.Direction() != 0
}

// ActivityEventTypes returns the canonical ordering of event types.
func ActivityEventTypes() []ActivityEventType {
	out := make([]ActivityEventType, len(validActivityEventTypes))
	copy(out, validActivityEventTypes)
	return out
}

// ParseActivityEventType converts raw input into ActivityEventType.
func ParseActivityEventType(value string) (ActivityEventType, error) {
	for _, candidate := range validActivityEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity event type %q", value)
}
