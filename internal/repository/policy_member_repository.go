package repository

import (
	"context"
	"database/sql"
	"fmt"

	"covermsg/internal/models"
)

type policyMemberRepository struct {
	db *sql.DB
}

// NewPolicyMemberRepository creates a new policy member repository
func NewPolicyMemberRepository(db *sql.DB) PolicyMemberRepository {
	return &policyMemberRepository{db: db}
}

// GetMember retrieves the membership card data for one member of a policy
func (r *policyMemberRepository) GetMember(ctx context.Context, policyID, memberIndex int) (*models.PolicyMember, error) {
	query := `
		SELECT policy_id, member_index, full_name, member_number, plan_name, valid_until
		FROM policy_members
		WHERE policy_id = $1 AND member_index = $2
	`

	member := &models.PolicyMember{}
	err := r.db.QueryRowContext(ctx, query, policyID, memberIndex).Scan(
		&member.PolicyID,
		&member.MemberIndex,
		&member.FullName,
		&member.MemberNumber,
		&member.PlanName,
		&member.ValidUntil,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy member: %w", err)
	}

	return member, nil
}
