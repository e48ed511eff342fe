package domain

import (
	"encoding/json"
	"strings"
)

// UserUpdate lists the user fields callers may change. Nil fields are left
// untouched.
type UserUpdate struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Role      *UserRole
	Company   *string
	JobTitle  *string
	Enabled   *bool
}

// Apply copies the set fields onto u.
func (up UserUpdate) Apply(u *User) {
	if up.Email != nil {
		u.Email = strings.TrimSpace(*up.Email)
	}
	setString(&u.Password, up.Password)
	setString(&u.FirstName, up.FirstName)
	setString(&u.LastName, up.LastName)
	if up.Role != nil {
		u.Role = *up.Role
	}
	setString(&u.Company, up.Company)
	setString(&u.JobTitle, up.JobTitle)
	if up.Enabled != nil {
		u.Enabled = *up.Enabled
	}
}

// ProposalUpdate lists the mutable proposal fields.
type ProposalUpdate struct {
	Title         *string
	Description   *string
	Industry      *string
	BudgetRange   *string
	Timeline      *string
	Status        *ProposalStatus
	Content       *json.RawMessage
	ClientName    *string
	ClientEmail   *string
	ClientCompany *string
}

// Apply copies the set fields onto p.
func (up ProposalUpdate) Apply(p *Proposal) {
	setString(&p.Title, up.Title)
	setString(&p.Description, up.Description)
	setString(&p.Industry, up.Industry)
	setString(&p.BudgetRange, up.BudgetRange)
	setString(&p.Timeline, up.Timeline)
	if up.Status != nil {
		p.Status = *up.Status
	}
	if up.Content != nil {
		p.Content = CloneRaw(*up.Content)
	}
	setString(&p.ClientName, up.ClientName)
	setString(&p.ClientEmail, up.ClientEmail)
	setString(&p.ClientCompany, up.ClientCompany)
}

// FileUpdate lists the mutable file fields. Payloads are immutable; attach a
// new file instead.
type FileUpdate struct {
	Name *string
}

// Apply copies the set fields onto f.
func (up FileUpdate) Apply(f *ProposalFile) {
	setString(&f.Name, up.Name)
}

// QuestionUpdate lists the mutable question fields.
type QuestionUpdate struct {
	Question *string
	Order    *int
}

// Apply copies the set fields onto q.
func (up QuestionUpdate) Apply(q *ProposalQuestion) {
	setString(&q.Question, up.Question)
	if up.Order != nil {
		q.Order = *up.Order
	}
}

// CollaborationUpdate lists the mutable collaboration fields.
type CollaborationUpdate struct {
	Role    *string
	Enabled *bool
}

// Apply copies the set fields onto c.
func (up CollaborationUpdate) Apply(c *Collaboration) {
	setString(&c.Role, up.Role)
	if up.Enabled != nil {
		c.Enabled = *up.Enabled
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// CloneRaw copies raw JSON so callers cannot alias store state.
func CloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	cloned := make(json.RawMessage, len(raw))
	copy(cloned, raw)
	return cloned
}
