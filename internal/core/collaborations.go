package core

import (
	"context"
	"strings"

	"proposalhub/pkg/domain"
)

// DefaultCollaborationRole is assigned when Create receives no role.
const DefaultCollaborationRole = "collaborator"

// Collaborations is the collaboration-grant repository.
type Collaborations struct {
	svc *Service
}

// Create grants userID access to a proposal. The user is a weak reference
// and is not validated.
func (r *Collaborations) Create(ctx context.Context, proposalID, userID int64, role string) (domain.Collaboration, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		role = DefaultCollaborationRole
	}
	var created domain.Collaboration
	_, err := r.svc.run(ctx, "collaborations.create", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateCollaboration(domain.Collaboration{
			ProposalID: proposalID,
			UserID:     userID,
			Role:       role,
		})
		return err
	})
	return created, err
}

// Get retrieves a grant by id.
func (r *Collaborations) Get(ctx context.Context, id int64) (domain.Collaboration, bool, error) {
	var (
		grant domain.Collaboration
		ok    bool
	)
	err := r.svc.view(ctx, "collaborations.get", func(v domain.TransactionView) error {
		grant, ok = v.FindCollaboration(id)
		return nil
	})
	return grant, ok, err
}

// ListByProposal returns the grants on a proposal.
func (r *Collaborations) ListByProposal(ctx context.Context, proposalID int64) ([]domain.Collaboration, error) {
	return r.list(ctx, "collaborations.list_by_proposal", func(c domain.Collaboration) bool {
		return c.ProposalID == proposalID
	})
}

// ListByUser returns the grants held by a user.
func (r *Collaborations) ListByUser(ctx context.Context, userID int64) ([]domain.Collaboration, error) {
	return r.list(ctx, "collaborations.list_by_user", func(c domain.Collaboration) bool {
		return c.UserID == userID
	})
}

func (r *Collaborations) list(ctx context.Context, op string, match func(domain.Collaboration) bool) ([]domain.Collaboration, error) {
	var out []domain.Collaboration
	err := r.svc.view(ctx, op, func(v domain.TransactionView) error {
		for _, c := range v.ListCollaborations() {
			if match(c) {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

// Update changes a grant's role or enabled flag.
func (r *Collaborations) Update(ctx context.Context, id int64, up domain.CollaborationUpdate) (domain.Collaboration, bool, error) {
	var updated domain.Collaboration
	_, err := r.svc.run(ctx, "collaborations.update", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateCollaboration(id, func(c *domain.Collaboration) error {
			up.Apply(c)
			return nil
		})
		return err
	})
	return found(updated, err)
}

// Delete removes a grant.
func (r *Collaborations) Delete(ctx context.Context, id int64) (bool, error) {
	_, err := r.svc.run(ctx, "collaborations.delete", func(tx domain.Transaction) error {
		return tx.DeleteCollaboration(id)
	})
	return deleted(err)
}

// CollaboratorsFor returns the distinct users with the collaborator role
// referenced by any grant on the given proposals, in first-seen order.
// Grants pointing at unknown users are skipped.
func (r *Collaborations) CollaboratorsFor(ctx context.Context, proposalIDs []int64) ([]domain.User, error) {
	wanted := make(map[int64]struct{}, len(proposalIDs))
	for _, id := range proposalIDs {
		wanted[id] = struct{}{}
	}
	var out []domain.User
	err := r.svc.view(ctx, "collaborations.collaborators_for", func(v domain.TransactionView) error {
		seen := make(map[int64]struct{})
		for _, c := range v.ListCollaborations() {
			if _, ok := wanted[c.ProposalID]; !ok {
				continue
			}
			if _, dup := seen[c.UserID]; dup {
				continue
			}
			seen[c.UserID] = struct{}{}
			u, ok := v.FindUser(c.UserID)
			if !ok || u.Role != domain.RoleCollaborator {
				continue
			}
			out = append(out, u)
		}
		return nil
	})
	return out, err
}
