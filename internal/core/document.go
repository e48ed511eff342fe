package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"proposalhub/pkg/domain"
)

// NoAnswerPlaceholder stands in for questions nobody answered yet.
const NoAnswerPlaceholder = "No answer provided"

const introductionText = "This proposal outlines our understanding of your requirements and the approach we recommend, based on the information gathered during discovery."

// Documents assembles proposal content from questions and answers.
type Documents struct {
	svc *Service
}

// DocumentContent is the structured content written back to a proposal.
type DocumentContent struct {
	ExecutiveSummary    string          `json:"executiveSummary"`
	Introduction        string          `json:"introduction"`
	ProjectOverview     ProjectOverview `json:"projectOverview"`
	QuestionsAndAnswers string          `json:"questionsAndAnswers"`
	Sections            []QASection     `json:"sections"`
}

// ProjectOverview mirrors the descriptive proposal fields.
type ProjectOverview struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Industry    string `json:"industry"`
	Timeline    string `json:"timeline"`
	Budget      string `json:"budget"`
}

// QASection pairs one question with its answer text.
type QASection struct {
	QuestionID int64  `json:"questionId"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Answered   bool   `json:"answered"`
}

// AssembleDocument builds the content for p from its ordered questions and
// the answers keyed by question id.
func AssembleDocument(p domain.Proposal, questions []domain.ProposalQuestion, answers map[int64]domain.ProposalAnswer) DocumentContent {
	sections := make([]QASection, 0, len(questions))
	var qa strings.Builder
	for i, q := range questions {
		text := NoAnswerPlaceholder
		a, answered := answers[q.ID]
		if answered {
			text = a.Answer
		}
		sections = append(sections, QASection{
			QuestionID: q.ID,
			Question:   q.Question,
			Answer:     text,
			Answered:   answered,
		})
		if i > 0 {
			qa.WriteString("\n\n")
		}
		fmt.Fprintf(&qa, "Q: %s\nA: %s", q.Question, text)
	}
	return DocumentContent{
		ExecutiveSummary: executiveSummary(p),
		Introduction:     introductionText,
		ProjectOverview: ProjectOverview{
			Title:       p.Title,
			Description: p.Description,
			Industry:    p.Industry,
			Timeline:    p.Timeline,
			Budget:      p.BudgetRange,
		},
		QuestionsAndAnswers: qa.String(),
		Sections:            sections,
	}
}

func executiveSummary(p domain.Proposal) string {
	summary := "This proposal covers " + p.Title + "."
	if desc := strings.TrimSpace(p.Description); desc != "" {
		summary += " " + desc
	}
	return summary
}

// Generate assembles the proposal's document, stores it as the proposal's
// content and moves the proposal to in_progress, all in one save. It reports
// false when the proposal does not exist.
func (r *Documents) Generate(ctx context.Context, proposalID int64) (domain.Proposal, bool, error) {
	var updated domain.Proposal
	_, err := r.svc.run(ctx, "documents.generate", func(tx domain.Transaction) error {
		p, ok := tx.FindProposal(proposalID)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityProposal, ID: proposalID}
		}
		questions := tx.ListQuestions(proposalID)
		answers := make(map[int64]domain.ProposalAnswer, len(questions))
		for _, q := range questions {
			if a, ok := tx.FindAnswerByQuestion(q.ID); ok {
				answers[q.ID] = a
			}
		}
		content, err := json.Marshal(AssembleDocument(p, questions, answers))
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		updated, err = tx.UpdateProposal(proposalID, func(p *domain.Proposal) error {
			p.Content = content
			p.Status = domain.StatusInProgress
			return nil
		})
		return err
	})
	return found(updated, err)
}
