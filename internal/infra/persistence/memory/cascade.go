package memory

import "proposalhub/pkg/domain"

// DeleteProposal removes a proposal together with everything that references
// it: files, questions and their answers, the share token and collaborations.
// Answers are collected before their questions are dropped.
func (tx *transaction) DeleteProposal(id int64) error {
	if err := tx.requireProposal(id); err != nil {
		return err
	}

	questionIDs := make(map[int64]struct{})
	for _, q := range tx.state.Questions {
		if q.ProposalID == id {
			questionIDs[q.ID] = struct{}{}
		}
	}

	var (
		files     []domain.ProposalFile
		questions []domain.ProposalQuestion
		answers   []domain.ProposalAnswer
		tokens    []domain.ShareToken
		grants    []domain.Collaboration
		proposals []domain.Proposal
	)
	tx.state.Files, files = removeWhere(tx.state.Files, func(f domain.ProposalFile) bool { return f.ProposalID == id })
	tx.state.Answers, answers = removeWhere(tx.state.Answers, func(a domain.ProposalAnswer) bool {
		_, ok := questionIDs[a.QuestionID]
		return ok
	})
	tx.state.Questions, questions = removeWhere(tx.state.Questions, func(q domain.ProposalQuestion) bool { return q.ProposalID == id })
	tx.state.ShareTokens, tokens = removeWhere(tx.state.ShareTokens, func(t domain.ShareToken) bool { return t.ProposalID == id })
	tx.state.Collaborations, grants = removeWhere(tx.state.Collaborations, func(c domain.Collaboration) bool { return c.ProposalID == id })
	tx.state.Proposals, proposals = removeWhere(tx.state.Proposals, func(p domain.Proposal) bool { return p.ID == id })

	for _, f := range files {
		tx.record(domain.EntityFile, domain.ActionDelete, f.ID)
	}
	for _, a := range answers {
		tx.record(domain.EntityAnswer, domain.ActionDelete, a.ID)
	}
	for _, q := range questions {
		tx.record(domain.EntityQuestion, domain.ActionDelete, q.ID)
	}
	for _, t := range tokens {
		tx.record(domain.EntityShareToken, domain.ActionDelete, t.ID)
	}
	for _, c := range grants {
		tx.record(domain.EntityCollaboration, domain.ActionDelete, c.ID)
	}
	for _, p := range proposals {
		tx.record(domain.EntityProposal, domain.ActionDelete, p.ID)
	}
	return nil
}
