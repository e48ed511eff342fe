// Package domain defines the persistent entities, update requests, change
// records, and persistence contracts shared by the proposalhub store.
package domain

import (
	"encoding/json"
	"time"
)

// EntityType identifies the kind of record held in the store snapshot.
type EntityType string

// Supported entity kinds. Each kind owns an independent id namespace.
const (
	EntityUser          EntityType = "user"
	EntityProposal      EntityType = "proposal"
	EntityFile          EntityType = "file"
	EntityQuestion      EntityType = "question"
	EntityAnswer        EntityType = "answer"
	EntityShareToken    EntityType = "shareToken"
	EntityCollaboration EntityType = "collaboration"
)

// EntityTypes lists every kind in snapshot order.
var EntityTypes = []EntityType{
	EntityUser,
	EntityProposal,
	EntityFile,
	EntityQuestion,
	EntityAnswer,
	EntityShareToken,
	EntityCollaboration,
}

// UserRole determines which surfaces a user may access.
type UserRole string

// Canonical user roles.
const (
	RoleCustomer     UserRole = "customer"
	RoleAdmin        UserRole = "admin"
	RoleCollaborator UserRole = "collaborator"
)

// Valid reports whether the role is one of the canonical roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleCollaborator:
		return true
	}
	return false
}

// ProposalStatus enumerates proposal workflow states.
type ProposalStatus string

// Canonical proposal statuses.
const (
	StatusDraft      ProposalStatus = "draft"
	StatusInProgress ProposalStatus = "in_progress"
	StatusCompleted  ProposalStatus = "completed"
)

// Valid reports whether the status is one of the canonical statuses.
func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// QuestionSource records who authored a question.
type QuestionSource string

// Question sources.
const (
	SourceAI   QuestionSource = "ai"
	SourceUser QuestionSource = "user"
)

// User is an account registered with the application.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      UserRole  `json:"role"`
	Company   string    `json:"company,omitempty"`
	JobTitle  string    `json:"jobTitle,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Proposal is the root aggregate. Files, questions, share tokens and
// collaborations reference it and are removed with it.
type Proposal struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Industry      string          `json:"industry,omitempty"`
	BudgetRange   string          `json:"budgetRange,omitempty"`
	Timeline      string          `json:"timeline,omitempty"`
	Status        ProposalStatus  `json:"status"`
	Content       json.RawMessage `json:"content"`
	OwnerID       *int64          `json:"ownerId"`
	ClientName    string          `json:"clientName,omitempty"`
	ClientEmail   string          `json:"clientEmail,omitempty"`
	ClientCompany string          `json:"clientCompany,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// HasContent reports whether a generated document is attached.
func (p Proposal) HasContent() bool {
	return len(p.Content) > 0 && string(p.Content) != "null"
}

// DecodeContent unmarshals the generated content into v.
func (p Proposal) DecodeContent(v any) error {
	return json.Unmarshal(p.Content, v)
}

// ProposalFile is an attachment whose payload is stored base64 encoded.
type ProposalFile struct {
	ID         int64     `json:"id"`
	ProposalID int64     `json:"proposalId"`
	Name       string    `json:"name"`
	MimeType   string    `json:"type"`
	Size       int64     `json:"size"`
	Payload    string    `json:"data"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ProposalQuestion is a question asked about a proposal.
type ProposalQuestion struct {
	ID         int64          `json:"id"`
	ProposalID int64          `json:"proposalId"`
	Question   string         `json:"question"`
	Order      int            `json:"order"`
	Source     QuestionSource `json:"source"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// ProposalAnswer is the single answer recorded for a question.
type ProposalAnswer struct {
	ID              int64     `json:"id"`
	QuestionID      int64     `json:"questionId"`
	Answer          string    `json:"answer"`
	RespondentToken string    `json:"respondentToken,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ShareToken grants public access to a proposal's questionnaire.
type ShareToken struct {
	ID         int64     `json:"id"`
	ProposalID int64     `json:"proposalId"`
	Token      string    `json:"token"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Collaboration grants a user access to a proposal.
type Collaboration struct {
	ID         int64     `json:"id"`
	ProposalID int64     `json:"proposalId"`
	UserID     int64     `json:"userId"`
	Role       string    `json:"role"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Counters holds the next id to hand out for each entity kind.
type Counters struct {
	User          int64 `json:"user"`
	Proposal      int64 `json:"proposal"`
	File          int64 `json:"file"`
	Question      int64 `json:"question"`
	Answer        int64 `json:"answer"`
	ShareToken    int64 `json:"shareToken"`
	Collaboration int64 `json:"collaboration"`
}

// Ptr returns a pointer to the counter for kind, or nil for unknown kinds.
func (c *Counters) Ptr(kind EntityType) *int64 {
	switch kind {
	case EntityUser:
		return &c.User
	case EntityProposal:
		return &c.Proposal
	case EntityFile:
		return &c.File
	case EntityQuestion:
		return &c.Question
	case EntityAnswer:
		return &c.Answer
	case EntityShareToken:
		return &c.ShareToken
	case EntityCollaboration:
		return &c.Collaboration
	}
	return nil
}
