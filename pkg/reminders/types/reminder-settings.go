package types

// built-in condition types; further types can be registered by the host
// application through the condition predicate registry.
const (
	CONDITION_TYPE_TASK_STATUS          = "task_status"
	CONDITION_TYPE_DUE_DATE_APPROACHING = "due_date_approaching"
	CONDITION_TYPE_USER_ONLINE          = "user_online"
)

// condition operators
const (
	CONDITION_OPERATOR_EQUALS     = "equals"
	CONDITION_OPERATOR_NOT_EQUALS = "not_equals"
	CONDITION_OPERATOR_LT         = "lt"
	CONDITION_OPERATOR_GT         = "gt"
)

type ReminderSettings struct {
	Conditions []ReminderCondition `bson:"conditions,omitempty" json:"conditions,omitempty"`
	Escalation EscalationConfig    `bson:"escalation" json:"escalation"`
}

// ReminderCondition is one gate evaluated before sending. All active
// conditions must pass for delivery to proceed.
type ReminderCondition struct {
	Type     string `bson:"type" json:"type"`
	Operator string `bson:"operator" json:"operator"`
	Value    string `bson:"value" json:"value"`
	Active   bool   `bson:"active" json:"active"`
}

type EscalationConfig struct {
	Enabled bool             `bson:"enabled" json:"enabled"`
	Steps   []EscalationStep `bson:"steps,omitempty" json:"steps,omitempty"`
}

type EscalationStep struct {
	DelayMinutes int      `bson:"delayMinutes" json:"delayMinutes"`
	Channels     []string `bson:"channels" json:"channels"`
	Recipients   []string `bson:"recipients" json:"recipients"`
	Message      string   `bson:"message" json:"message"`
}
