package domain

import (
	"context"
	"errors"
)

// ErrSlotEmpty is returned by Slot.Load when nothing has been saved under the key.
var ErrSlotEmpty = errors.New("slot: no snapshot stored")

// Slot is a durable key/value location holding the serialized store snapshot.
// Implementations overwrite the previous value on Save.
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// TransactionView provides read-only access to snapshot data. Returned records
// are copies.
type TransactionView interface {
	ListUsers() []User
	FindUser(id int64) (User, bool)
	FindUserByEmail(email string) (User, bool)
	ListProposals() []Proposal
	FindProposal(id int64) (Proposal, bool)
	ListFiles(proposalID int64) []ProposalFile
	FindFile(id int64) (ProposalFile, bool)
	ListQuestions(proposalID int64) []ProposalQuestion
	FindQuestion(id int64) (ProposalQuestion, bool)
	ListAnswers() []ProposalAnswer
	FindAnswer(id int64) (ProposalAnswer, bool)
	FindAnswerByQuestion(questionID int64) (ProposalAnswer, bool)
	ListShareTokens() []ShareToken
	FindShareToken(proposalID int64) (ShareToken, bool)
	FindShareTokenByValue(token string) (ShareToken, bool)
	ListCollaborations() []Collaboration
	FindCollaboration(id int64) (Collaboration, bool)
	Counters() Counters
}

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Update and delete return ErrNotFound for unknown ids.
type Transaction interface {
	TransactionView
	CreateUser(User) (User, error)
	UpdateUser(id int64, mutator func(*User) error) (User, error)
	CreateProposal(Proposal) (Proposal, error)
	UpdateProposal(id int64, mutator func(*Proposal) error) (Proposal, error)
	DeleteProposal(id int64) error
	CreateFile(ProposalFile) (ProposalFile, error)
	UpdateFile(id int64, mutator func(*ProposalFile) error) (ProposalFile, error)
	DeleteFile(id int64) error
	CreateQuestion(ProposalQuestion) (ProposalQuestion, error)
	UpdateQuestion(id int64, mutator func(*ProposalQuestion) error) (ProposalQuestion, error)
	DeleteQuestion(id int64) error
	UpsertAnswer(ProposalAnswer) (ProposalAnswer, error)
	DeleteAnswer(id int64) error
	CreateShareToken(ShareToken) (ShareToken, error)
	DeleteShareToken(id int64) error
	CreateCollaboration(Collaboration) (Collaboration, error)
	UpdateCollaboration(id int64, mutator func(*Collaboration) error) (Collaboration, error)
	DeleteCollaboration(id int64) error
}

// PersistentStore is the abstraction higher layers use to read and mutate the
// snapshot.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) ([]Change, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
