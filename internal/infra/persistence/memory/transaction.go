package memory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"proposalhub/pkg/domain"
)

// view exposes read-only lookups over a snapshot. Every scan is linear.
type view struct {
	state Snapshot
}

// transaction mutates a private copy of the state and records what changed.
type transaction struct {
	view
	changes []domain.Change
	now     time.Time
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}

func removeWhere[T any](items []T, match func(T) bool) ([]T, []T) {
	kept := items[:0:0]
	var removed []T
	for _, item := range items {
		if match(item) {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	return kept, removed
}

func filter[T any](items []T, match func(T) bool, cloneFn func(T) T) []T {
	out := make([]T, 0)
	for _, item := range items {
		if match(item) {
			out = append(out, cloneFn(item))
		}
	}
	return out
}

func find[T any](items []T, match func(T) bool, cloneFn func(T) T) (T, bool) {
	if i := indexOf(items, match); i >= 0 {
		return cloneFn(items[i]), true
	}
	var zero T
	return zero, false
}

// ListUsers returns all users.
func (v view) ListUsers() []domain.User {
	return cloneSlice(v.state.Users, cloneUser)
}

// FindUser retrieves a user by id.
func (v view) FindUser(id int64) (domain.User, bool) {
	return find(v.state.Users, func(u domain.User) bool { return u.ID == id }, cloneUser)
}

// FindUserByEmail retrieves a user by email, ignoring case.
func (v view) FindUserByEmail(email string) (domain.User, bool) {
	email = strings.TrimSpace(email)
	return find(v.state.Users, func(u domain.User) bool { return strings.EqualFold(u.Email, email) }, cloneUser)
}

// ListProposals returns all proposals.
func (v view) ListProposals() []domain.Proposal {
	return cloneSlice(v.state.Proposals, cloneProposal)
}

// FindProposal retrieves a proposal by id.
func (v view) FindProposal(id int64) (domain.Proposal, bool) {
	return find(v.state.Proposals, func(p domain.Proposal) bool { return p.ID == id }, cloneProposal)
}

// ListFiles returns the files attached to a proposal.
func (v view) ListFiles(proposalID int64) []domain.ProposalFile {
	return filter(v.state.Files, func(f domain.ProposalFile) bool { return f.ProposalID == proposalID }, identity[domain.ProposalFile])
}

// FindFile retrieves a file by id.
func (v view) FindFile(id int64) (domain.ProposalFile, bool) {
	return find(v.state.Files, func(f domain.ProposalFile) bool { return f.ID == id }, identity[domain.ProposalFile])
}

// ListQuestions returns a proposal's questions ordered by order, then id.
func (v view) ListQuestions(proposalID int64) []domain.ProposalQuestion {
	out := filter(v.state.Questions, func(q domain.ProposalQuestion) bool { return q.ProposalID == proposalID }, identity[domain.ProposalQuestion])
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FindQuestion retrieves a question by id.
func (v view) FindQuestion(id int64) (domain.ProposalQuestion, bool) {
	return find(v.state.Questions, func(q domain.ProposalQuestion) bool { return q.ID == id }, identity[domain.ProposalQuestion])
}

// ListAnswers returns all answers.
func (v view) ListAnswers() []domain.ProposalAnswer {
	return cloneSlice(v.state.Answers, identity[domain.ProposalAnswer])
}

// FindAnswer retrieves an answer by id.
func (v view) FindAnswer(id int64) (domain.ProposalAnswer, bool) {
	return find(v.state.Answers, func(a domain.ProposalAnswer) bool { return a.ID == id }, identity[domain.ProposalAnswer])
}

// FindAnswerByQuestion retrieves the answer recorded for a question.
func (v view) FindAnswerByQuestion(questionID int64) (domain.ProposalAnswer, bool) {
	return find(v.state.Answers, func(a domain.ProposalAnswer) bool { return a.QuestionID == questionID }, identity[domain.ProposalAnswer])
}

// ListShareTokens returns all share tokens.
func (v view) ListShareTokens() []domain.ShareToken {
	return cloneSlice(v.state.ShareTokens, identity[domain.ShareToken])
}

// FindShareToken retrieves the token issued for a proposal.
func (v view) FindShareToken(proposalID int64) (domain.ShareToken, bool) {
	return find(v.state.ShareTokens, func(t domain.ShareToken) bool { return t.ProposalID == proposalID }, identity[domain.ShareToken])
}

// FindShareTokenByValue resolves a token string.
func (v view) FindShareTokenByValue(token string) (domain.ShareToken, bool) {
	if token == "" {
		return domain.ShareToken{}, false
	}
	return find(v.state.ShareTokens, func(t domain.ShareToken) bool { return t.Token == token }, identity[domain.ShareToken])
}

// ListCollaborations returns all collaborations.
func (v view) ListCollaborations() []domain.Collaboration {
	return cloneSlice(v.state.Collaborations, identity[domain.Collaboration])
}

// FindCollaboration retrieves a collaboration by id.
func (v view) FindCollaboration(id int64) (domain.Collaboration, bool) {
	return find(v.state.Collaborations, func(c domain.Collaboration) bool { return c.ID == id }, identity[domain.Collaboration])
}

// Counters returns the id counters.
func (v view) Counters() domain.Counters {
	return v.state.NextID
}

func (tx *transaction) record(entity domain.EntityType, action domain.Action, id int64) {
	tx.changes = append(tx.changes, domain.Change{Entity: entity, Action: action, ID: id})
}

func (tx *transaction) requireProposal(id int64) error {
	if indexOf(tx.state.Proposals, func(p domain.Proposal) bool { return p.ID == id }) < 0 {
		return domain.ErrNotFound{Entity: domain.EntityProposal, ID: id}
	}
	return nil
}

func (tx *transaction) emailTaken(email string, exceptID int64) bool {
	return indexOf(tx.state.Users, func(u domain.User) bool {
		return u.ID != exceptID && strings.EqualFold(u.Email, email)
	}) >= 0
}

// CreateUser registers a user. Users start enabled.
func (tx *transaction) CreateUser(u domain.User) (domain.User, error) {
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" {
		return domain.User{}, errors.New("user email required")
	}
	if u.Role == "" {
		u.Role = domain.RoleCustomer
	}
	if !u.Role.Valid() {
		return domain.User{}, fmt.Errorf("unknown user role %q", u.Role)
	}
	if tx.emailTaken(u.Email, 0) {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrEmailTaken, u.Email)
	}
	u.ID = tx.nextID(domain.EntityUser)
	u.Enabled = true
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.Users = append(tx.state.Users, u)
	tx.record(domain.EntityUser, domain.ActionCreate, u.ID)
	return cloneUser(u), nil
}

// UpdateUser mutates a user using the provided mutator function.
func (tx *transaction) UpdateUser(id int64, mutator func(*domain.User) error) (domain.User, error) {
	i := indexOf(tx.state.Users, func(u domain.User) bool { return u.ID == id })
	if i < 0 {
		return domain.User{}, domain.ErrNotFound{Entity: domain.EntityUser, ID: id}
	}
	current := cloneUser(tx.state.Users[i])
	if err := mutator(&current); err != nil {
		return domain.User{}, err
	}
	current.ID = id
	current.CreatedAt = tx.state.Users[i].CreatedAt
	current.UpdatedAt = tx.now
	current.Email = strings.TrimSpace(current.Email)
	if current.Email == "" {
		return domain.User{}, errors.New("user email required")
	}
	if !current.Role.Valid() {
		return domain.User{}, fmt.Errorf("unknown user role %q", current.Role)
	}
	if tx.emailTaken(current.Email, id) {
		return domain.User{}, fmt.Errorf("%w: %s", domain.ErrEmailTaken, current.Email)
	}
	tx.state.Users[i] = current
	tx.record(domain.EntityUser, domain.ActionUpdate, id)
	return cloneUser(current), nil
}

// CreateProposal stores a new proposal. Status always starts as draft and
// content as null.
func (tx *transaction) CreateProposal(p domain.Proposal) (domain.Proposal, error) {
	p.ID = tx.nextID(domain.EntityProposal)
	p.Status = domain.StatusDraft
	p.Content = nil
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	p = cloneProposal(p)
	tx.state.Proposals = append(tx.state.Proposals, p)
	tx.record(domain.EntityProposal, domain.ActionCreate, p.ID)
	return cloneProposal(p), nil
}

// UpdateProposal mutates a proposal using the provided mutator function.
func (tx *transaction) UpdateProposal(id int64, mutator func(*domain.Proposal) error) (domain.Proposal, error) {
	i := indexOf(tx.state.Proposals, func(p domain.Proposal) bool { return p.ID == id })
	if i < 0 {
		return domain.Proposal{}, domain.ErrNotFound{Entity: domain.EntityProposal, ID: id}
	}
	current := cloneProposal(tx.state.Proposals[i])
	if err := mutator(&current); err != nil {
		return domain.Proposal{}, err
	}
	current.ID = id
	current.CreatedAt = tx.state.Proposals[i].CreatedAt
	current.UpdatedAt = tx.now
	if current.Status == "" {
		current.Status = domain.StatusDraft
	}
	if !current.Status.Valid() {
		return domain.Proposal{}, fmt.Errorf("unknown proposal status %q", current.Status)
	}
	tx.state.Proposals[i] = cloneProposal(current)
	tx.record(domain.EntityProposal, domain.ActionUpdate, id)
	return current, nil
}

// CreateFile stores a file record for an existing proposal.
func (tx *transaction) CreateFile(f domain.ProposalFile) (domain.ProposalFile, error) {
	if err := tx.requireProposal(f.ProposalID); err != nil {
		return domain.ProposalFile{}, err
	}
	f.ID = tx.nextID(domain.EntityFile)
	f.CreatedAt = tx.now
	tx.state.Files = append(tx.state.Files, f)
	tx.record(domain.EntityFile, domain.ActionCreate, f.ID)
	return f, nil
}

// UpdateFile mutates file metadata. Ownership and payload are preserved.
func (tx *transaction) UpdateFile(id int64, mutator func(*domain.ProposalFile) error) (domain.ProposalFile, error) {
	i := indexOf(tx.state.Files, func(f domain.ProposalFile) bool { return f.ID == id })
	if i < 0 {
		return domain.ProposalFile{}, domain.ErrNotFound{Entity: domain.EntityFile, ID: id}
	}
	original := tx.state.Files[i]
	current := original
	if err := mutator(&current); err != nil {
		return domain.ProposalFile{}, err
	}
	current.ID = id
	current.ProposalID = original.ProposalID
	current.Payload = original.Payload
	current.Size = original.Size
	current.CreatedAt = original.CreatedAt
	tx.state.Files[i] = current
	tx.record(domain.EntityFile, domain.ActionUpdate, id)
	return current, nil
}

// DeleteFile removes a file record.
func (tx *transaction) DeleteFile(id int64) error {
	var removed []domain.ProposalFile
	tx.state.Files, removed = removeWhere(tx.state.Files, func(f domain.ProposalFile) bool { return f.ID == id })
	if len(removed) == 0 {
		return domain.ErrNotFound{Entity: domain.EntityFile, ID: id}
	}
	tx.record(domain.EntityFile, domain.ActionDelete, id)
	return nil
}

// CreateQuestion appends a question to a proposal. Order is the number of
// questions the proposal already has.
func (tx *transaction) CreateQuestion(q domain.ProposalQuestion) (domain.ProposalQuestion, error) {
	if err := tx.requireProposal(q.ProposalID); err != nil {
		return domain.ProposalQuestion{}, err
	}
	count := 0
	for _, existing := range tx.state.Questions {
		if existing.ProposalID == q.ProposalID {
			count++
		}
	}
	q.ID = tx.nextID(domain.EntityQuestion)
	q.Order = count
	if q.Source == "" {
		q.Source = domain.SourceUser
	}
	q.CreatedAt = tx.now
	tx.state.Questions = append(tx.state.Questions, q)
	tx.record(domain.EntityQuestion, domain.ActionCreate, q.ID)
	return q, nil
}

// UpdateQuestion mutates a question's text or order.
func (tx *transaction) UpdateQuestion(id int64, mutator func(*domain.ProposalQuestion) error) (domain.ProposalQuestion, error) {
	i := indexOf(tx.state.Questions, func(q domain.ProposalQuestion) bool { return q.ID == id })
	if i < 0 {
		return domain.ProposalQuestion{}, domain.ErrNotFound{Entity: domain.EntityQuestion, ID: id}
	}
	original := tx.state.Questions[i]
	current := original
	if err := mutator(&current); err != nil {
		return domain.ProposalQuestion{}, err
	}
	current.ID = id
	current.ProposalID = original.ProposalID
	current.Source = original.Source
	current.CreatedAt = original.CreatedAt
	tx.state.Questions[i] = current
	tx.record(domain.EntityQuestion, domain.ActionUpdate, id)
	return current, nil
}

// DeleteQuestion removes a question and its answer.
func (tx *transaction) DeleteQuestion(id int64) error {
	var removed []domain.ProposalQuestion
	tx.state.Questions, removed = removeWhere(tx.state.Questions, func(q domain.ProposalQuestion) bool { return q.ID == id })
	if len(removed) == 0 {
		return domain.ErrNotFound{Entity: domain.EntityQuestion, ID: id}
	}
	tx.record(domain.EntityQuestion, domain.ActionDelete, id)
	var answers []domain.ProposalAnswer
	tx.state.Answers, answers = removeWhere(tx.state.Answers, func(a domain.ProposalAnswer) bool { return a.QuestionID == id })
	for _, a := range answers {
		tx.record(domain.EntityAnswer, domain.ActionDelete, a.ID)
	}
	return nil
}

// UpsertAnswer records the answer for a question, updating the existing one
// in place when present. A non-empty respondent token replaces the stored one.
func (tx *transaction) UpsertAnswer(a domain.ProposalAnswer) (domain.ProposalAnswer, error) {
	if indexOf(tx.state.Questions, func(q domain.ProposalQuestion) bool { return q.ID == a.QuestionID }) < 0 {
		return domain.ProposalAnswer{}, domain.ErrNotFound{Entity: domain.EntityQuestion, ID: a.QuestionID}
	}
	if i := indexOf(tx.state.Answers, func(existing domain.ProposalAnswer) bool { return existing.QuestionID == a.QuestionID }); i >= 0 {
		current := tx.state.Answers[i]
		current.Answer = a.Answer
		if a.RespondentToken != "" {
			current.RespondentToken = a.RespondentToken
		}
		current.UpdatedAt = tx.now
		tx.state.Answers[i] = current
		tx.record(domain.EntityAnswer, domain.ActionUpdate, current.ID)
		return current, nil
	}
	a.ID = tx.nextID(domain.EntityAnswer)
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.Answers = append(tx.state.Answers, a)
	tx.record(domain.EntityAnswer, domain.ActionCreate, a.ID)
	return a, nil
}

// DeleteAnswer removes an answer.
func (tx *transaction) DeleteAnswer(id int64) error {
	var removed []domain.ProposalAnswer
	tx.state.Answers, removed = removeWhere(tx.state.Answers, func(a domain.ProposalAnswer) bool { return a.ID == id })
	if len(removed) == 0 {
		return domain.ErrNotFound{Entity: domain.EntityAnswer, ID: id}
	}
	tx.record(domain.EntityAnswer, domain.ActionDelete, id)
	return nil
}

// CreateShareToken stores the token for a proposal. A proposal holds at most
// one token.
func (tx *transaction) CreateShareToken(t domain.ShareToken) (domain.ShareToken, error) {
	if err := tx.requireProposal(t.ProposalID); err != nil {
		return domain.ShareToken{}, err
	}
	if t.Token == "" {
		return domain.ShareToken{}, errors.New("share token value required")
	}
	if existing, ok := tx.FindShareToken(t.ProposalID); ok {
		return domain.ShareToken{}, fmt.Errorf("proposal %d already has share token %d", t.ProposalID, existing.ID)
	}
	t.ID = tx.nextID(domain.EntityShareToken)
	t.CreatedAt = tx.now
	tx.state.ShareTokens = append(tx.state.ShareTokens, t)
	tx.record(domain.EntityShareToken, domain.ActionCreate, t.ID)
	return t, nil
}

// DeleteShareToken revokes a share token.
func (tx *transaction) DeleteShareToken(id int64) error {
	var removed []domain.ShareToken
	tx.state.ShareTokens, removed = removeWhere(tx.state.ShareTokens, func(t domain.ShareToken) bool { return t.ID == id })
	if len(removed) == 0 {
		return domain.ErrNotFound{Entity: domain.EntityShareToken, ID: id}
	}
	tx.record(domain.EntityShareToken, domain.ActionDelete, id)
	return nil
}

// CreateCollaboration grants a user access to an existing proposal. The user
// reference is weak and not validated. Grants start enabled.
func (tx *transaction) CreateCollaboration(c domain.Collaboration) (domain.Collaboration, error) {
	if err := tx.requireProposal(c.ProposalID); err != nil {
		return domain.Collaboration{}, err
	}
	c.ID = tx.nextID(domain.EntityCollaboration)
	c.Enabled = true
	c.CreatedAt = tx.now
	tx.state.Collaborations = append(tx.state.Collaborations, c)
	tx.record(domain.EntityCollaboration, domain.ActionCreate, c.ID)
	return c, nil
}

// UpdateCollaboration mutates a grant's role or enabled flag.
func (tx *transaction) UpdateCollaboration(id int64, mutator func(*domain.Collaboration) error) (domain.Collaboration, error) {
	i := indexOf(tx.state.Collaborations, func(c domain.Collaboration) bool { return c.ID == id })
	if i < 0 {
		return domain.Collaboration{}, domain.ErrNotFound{Entity: domain.EntityCollaboration, ID: id}
	}
	original := tx.state.Collaborations[i]
	current := original
	if err := mutator(&current); err != nil {
		return domain.Collaboration{}, err
	}
	current.ID = id
	current.ProposalID = original.ProposalID
	current.UserID = original.UserID
	current.CreatedAt = original.CreatedAt
	tx.state.Collaborations[i] = current
	tx.record(domain.EntityCollaboration, domain.ActionUpdate, id)
	return current, nil
}

// DeleteCollaboration removes a grant.
func (tx *transaction) DeleteCollaboration(id int64) error {
	var removed []domain.Collaboration
	tx.state.Collaborations, removed = removeWhere(tx.state.Collaborations, func(c domain.Collaboration) bool { return c.ID == id })
	if len(removed) == 0 {
		return domain.ErrNotFound{Entity: domain.EntityCollaboration, ID: id}
	}
	tx.record(domain.EntityCollaboration, domain.ActionDelete, id)
	return nil
}
