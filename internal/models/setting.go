package models

import "time"

// SystemSetting represents one key/value configuration row
type SystemSetting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	UpdatedBy *string   `json:"updated_by,omitempty" db:"updated_by"`
}

// PolicyMember holds the data printed on a membership card. The policy and
// member data model is owned elsewhere; this is the read-only slice the
// attachment generator needs.
type PolicyMember struct {
	PolicyID     int       `json:"policy_id" db:"policy_id"`
	MemberIndex  int       `json:"member_index" db:"member_index"`
	FullName     string    `json:"full_name" db:"full_name"`
	MemberNumber string    `json:"member_number" db:"member_number"`
	PlanName     string    `json:"plan_name" db:"plan_name"`
	ValidUntil   time.Time `json:"valid_until" db:"valid_until"`
}
