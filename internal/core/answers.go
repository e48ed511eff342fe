package core

import (
	"context"

	"proposalhub/pkg/domain"
)

// Answers is the answer repository. A question holds at most one answer.
type Answers struct {
	svc *Service
}

// Set records the answer for a question, updating the existing answer in
// place when there is one. A non-empty respondentToken replaces the stored
// token; it is not checked against the proposal's share token.
func (r *Answers) Set(ctx context.Context, questionID int64, text, respondentToken string) (domain.ProposalAnswer, error) {
	var stored domain.ProposalAnswer
	_, err := r.svc.run(ctx, "answers.set", func(tx domain.Transaction) error {
		var err error
		stored, err = tx.UpsertAnswer(domain.ProposalAnswer{
			QuestionID:      questionID,
			Answer:          text,
			RespondentToken: respondentToken,
		})
		return err
	})
	return stored, err
}

// Get retrieves an answer by id.
func (r *Answers) Get(ctx context.Context, id int64) (domain.ProposalAnswer, bool, error) {
	var (
		answer domain.ProposalAnswer
		ok     bool
	)
	err := r.svc.view(ctx, "answers.get", func(v domain.TransactionView) error {
		answer, ok = v.FindAnswer(id)
		return nil
	})
	return answer, ok, err
}

// GetByQuestion retrieves the answer recorded for a question.
func (r *Answers) GetByQuestion(ctx context.Context, questionID int64) (domain.ProposalAnswer, bool, error) {
	var (
		answer domain.ProposalAnswer
		ok     bool
	)
	err := r.svc.view(ctx, "answers.get_by_question", func(v domain.TransactionView) error {
		answer, ok = v.FindAnswerByQuestion(questionID)
		return nil
	})
	return answer, ok, err
}

// ListByQuestions returns the answers of the given questions, following the
// order of questionIDs. Unanswered questions are skipped.
func (r *Answers) ListByQuestions(ctx context.Context, questionIDs []int64) ([]domain.ProposalAnswer, error) {
	out := make([]domain.ProposalAnswer, 0, len(questionIDs))
	err := r.svc.view(ctx, "answers.list_by_questions", func(v domain.TransactionView) error {
		for _, id := range questionIDs {
			if a, ok := v.FindAnswerByQuestion(id); ok {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

// Delete removes an answer.
func (r *Answers) Delete(ctx context.Context, id int64) (bool, error) {
	_, err := r.svc.run(ctx, "answers.delete", func(tx domain.Transaction) error {
		return tx.DeleteAnswer(id)
	})
	return deleted(err)
}
