package core

import (
	"context"
	"sort"

	"proposalhub/pkg/domain"
)

// Proposals is the proposal repository.
type Proposals struct {
	svc *Service
}

// ProposalFilter narrows List. Nil or empty fields match everything.
type ProposalFilter struct {
	OwnerID *int64
	Status  domain.ProposalStatus
}

func (f ProposalFilter) match(p domain.Proposal) bool {
	if f.OwnerID != nil && (p.OwnerID == nil || *p.OwnerID != *f.OwnerID) {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

// sortByRecency orders proposals most recently updated first.
func sortByRecency(items []domain.Proposal) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID > items[j].ID
	})
}

// List returns matching proposals, most recently updated first.
func (r *Proposals) List(ctx context.Context, filter ProposalFilter) ([]domain.Proposal, error) {
	var out []domain.Proposal
	err := r.svc.view(ctx, "proposals.list", func(v domain.TransactionView) error {
		for _, p := range v.ListProposals() {
			if filter.match(p) {
				out = append(out, p)
			}
		}
		return nil
	})
	sortByRecency(out)
	return out, err
}

// Get retrieves a proposal by id.
func (r *Proposals) Get(ctx context.Context, id int64) (domain.Proposal, bool, error) {
	var (
		proposal domain.Proposal
		ok       bool
	)
	err := r.svc.view(ctx, "proposals.get", func(v domain.TransactionView) error {
		proposal, ok = v.FindProposal(id)
		return nil
	})
	return proposal, ok, err
}

// Create persists a new proposal. Status starts as draft and content as null
// whatever the input carries.
func (r *Proposals) Create(ctx context.Context, proposal domain.Proposal) (domain.Proposal, error) {
	var created domain.Proposal
	_, err := r.svc.run(ctx, "proposals.create", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProposal(proposal)
		return err
	})
	return created, err
}

// Update applies the set fields of up.
func (r *Proposals) Update(ctx context.Context, id int64, up domain.ProposalUpdate) (domain.Proposal, bool, error) {
	var updated domain.Proposal
	_, err := r.svc.run(ctx, "proposals.update", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateProposal(id, func(p *domain.Proposal) error {
			up.Apply(p)
			return nil
		})
		return err
	})
	return found(updated, err)
}

// Delete removes a proposal with its files, questions, answers, share token
// and collaborations in a single save. It reports false when the proposal
// does not exist, in which case nothing is touched.
func (r *Proposals) Delete(ctx context.Context, id int64) (bool, error) {
	_, err := r.svc.run(ctx, "proposals.delete", func(tx domain.Transaction) error {
		return tx.DeleteProposal(id)
	})
	return deleted(err)
}

// GetByShareToken resolves the proposal a public share token points at.
func (r *Proposals) GetByShareToken(ctx context.Context, token string) (domain.Proposal, bool, error) {
	var (
		proposal domain.Proposal
		ok       bool
	)
	err := r.svc.view(ctx, "proposals.get_by_share_token", func(v domain.TransactionView) error {
		st, hit := v.FindShareTokenByValue(token)
		if !hit {
			return nil
		}
		proposal, ok = v.FindProposal(st.ProposalID)
		return nil
	})
	return proposal, ok, err
}

// ListForCollaborator returns the proposals a user holds an enabled
// collaboration on, most recently updated first.
func (r *Proposals) ListForCollaborator(ctx context.Context, userID int64) ([]domain.Proposal, error) {
	var out []domain.Proposal
	err := r.svc.view(ctx, "proposals.list_for_collaborator", func(v domain.TransactionView) error {
		seen := make(map[int64]struct{})
		for _, c := range v.ListCollaborations() {
			if c.UserID != userID || !c.Enabled {
				continue
			}
			if _, dup := seen[c.ProposalID]; dup {
				continue
			}
			seen[c.ProposalID] = struct{}{}
			if p, ok := v.FindProposal(c.ProposalID); ok {
				out = append(out, p)
			}
		}
		return nil
	})
	sortByRecency(out)
	return out, err
}
