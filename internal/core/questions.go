package core

import (
	"context"
	"errors"
	"strings"

	"proposalhub/pkg/domain"
)

var errEmptyQuestion = errors.New("question text required")

// Questions is the question repository.
type Questions struct {
	svc *Service
}

// Create appends a question to a proposal. Its order is the number of
// questions the proposal already holds; an empty source means user.
func (r *Questions) Create(ctx context.Context, proposalID int64, text string, source domain.QuestionSource) (domain.ProposalQuestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ProposalQuestion{}, errEmptyQuestion
	}
	var created domain.ProposalQuestion
	_, err := r.svc.run(ctx, "questions.create", func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateQuestion(domain.ProposalQuestion{
			ProposalID: proposalID,
			Question:   text,
			Source:     source,
		})
		return err
	})
	return created, err
}

// List returns a proposal's questions ordered by order, then id.
func (r *Questions) List(ctx context.Context, proposalID int64) ([]domain.ProposalQuestion, error) {
	var out []domain.ProposalQuestion
	err := r.svc.view(ctx, "questions.list", func(v domain.TransactionView) error {
		out = v.ListQuestions(proposalID)
		return nil
	})
	return out, err
}

// Get retrieves a question by id.
func (r *Questions) Get(ctx context.Context, id int64) (domain.ProposalQuestion, bool, error) {
	var (
		question domain.ProposalQuestion
		ok       bool
	)
	err := r.svc.view(ctx, "questions.get", func(v domain.TransactionView) error {
		question, ok = v.FindQuestion(id)
		return nil
	})
	return question, ok, err
}

// Update changes a question's text or order.
func (r *Questions) Update(ctx context.Context, id int64, up domain.QuestionUpdate) (domain.ProposalQuestion, bool, error) {
	var updated domain.ProposalQuestion
	_, err := r.svc.run(ctx, "questions.update", func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateQuestion(id, func(q *domain.ProposalQuestion) error {
			up.Apply(q)
			q.Question = strings.TrimSpace(q.Question)
			if q.Question == "" {
				return errEmptyQuestion
			}
			return nil
		})
		return err
	})
	return found(updated, err)
}

// Delete removes a question together with its answer.
func (r *Questions) Delete(ctx context.Context, id int64) (bool, error) {
	_, err := r.svc.run(ctx, "questions.delete", func(tx domain.Transaction) error {
		return tx.DeleteQuestion(id)
	})
	return deleted(err)
}

// Generate derives questions from title and description and appends them to
// the proposal in one transaction, tagged as ai. It returns the stored
// questions in emission order.
func (r *Questions) Generate(ctx context.Context, proposalID int64, title, description string) ([]domain.ProposalQuestion, error) {
	generated := GenerateQuestions(title, description)
	created := make([]domain.ProposalQuestion, 0, len(generated))
	_, err := r.svc.run(ctx, "questions.generate", func(tx domain.Transaction) error {
		for _, g := range generated {
			q, err := tx.CreateQuestion(domain.ProposalQuestion{
				ProposalID: proposalID,
				Question:   g.Question,
				Source:     domain.SourceAI,
			})
			if err != nil {
				return err
			}
			created = append(created, q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
