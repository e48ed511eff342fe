package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"proposalhub/pkg/domain"
)

// Snapshot is the full store state, serialized as one blob.
type Snapshot struct {
	Users          []domain.User             `json:"users"`
	Proposals      []domain.Proposal         `json:"proposals"`
	Files          []domain.ProposalFile     `json:"proposalFiles"`
	Questions      []domain.ProposalQuestion `json:"proposalQuestions"`
	Answers        []domain.ProposalAnswer   `json:"proposalAnswers"`
	ShareTokens    []domain.ShareToken       `json:"shareTokens"`
	Collaborations []domain.Collaboration    `json:"collaborations"`
	NextID         domain.Counters           `json:"nextId"`
}

// Top-level keys of the persisted layout.
const (
	sectionUsers          = "users"
	sectionProposals      = "proposals"
	sectionFiles          = "proposalFiles"
	sectionQuestions      = "proposalQuestions"
	sectionAnswers        = "proposalAnswers"
	sectionShareTokens    = "shareTokens"
	sectionCollaborations = "collaborations"
	sectionNextID         = "nextId"
)

// Seed admin and customer credentials for a fresh store.
const (
	SeedAdminEmail    = "admin@proposalhub.local"
	SeedCustomerEmail = "customer@proposalhub.local"
)

// SeedSnapshot returns the snapshot used when nothing usable is persisted.
func SeedSnapshot(now time.Time) Snapshot {
	return Snapshot{
		Users: []domain.User{
			{
				ID:        1,
				Email:     SeedAdminEmail,
				Password:  "admin123",
				FirstName: "Admin",
				LastName:  "User",
				Role:      domain.RoleAdmin,
				Enabled:   true,
				CreatedAt: now,
				UpdatedAt: now,
			},
			{
				ID:        2,
				Email:     SeedCustomerEmail,
				Password:  "customer123",
				FirstName: "Demo",
				LastName:  "Customer",
				Role:      domain.RoleCustomer,
				Company:   "Acme Corp",
				Enabled:   true,
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		Proposals:      []domain.Proposal{},
		Files:          []domain.ProposalFile{},
		Questions:      []domain.ProposalQuestion{},
		Answers:        []domain.ProposalAnswer{},
		ShareTokens:    []domain.ShareToken{},
		Collaborations: []domain.Collaboration{},
		NextID: domain.Counters{
			User:          3,
			Proposal:      1,
			File:          1,
			Question:      1,
			Answer:        1,
			ShareToken:    1,
			Collaboration: 1,
		},
	}
}

// Repair lists the parts of a persisted blob that were filled from the seed.
type Repair struct {
	// Sections were missing, null, or unreadable and were taken from the seed.
	Sections []string
	// Malformed is the subset of Sections that was present but had the wrong
	// shape.
	Malformed []string
	// Dropped counts unreadable records skipped inside otherwise valid sections.
	Dropped  map[string]int
	Counters []domain.EntityType
}

// Empty reports whether the blob was complete.
func (r Repair) Empty() bool {
	return len(r.Sections) == 0 && len(r.Counters) == 0 && len(r.Dropped) == 0
}

// EncodeSnapshot serializes s in the persisted layout. Nil sections are
// written as empty arrays so a reload never mistakes them for missing ones.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	s = normalizeSnapshot(s)
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a persisted blob. Sections or counters that are
// missing, null or of the wrong shape are merged in from seed; every readable
// section is kept as-is. Only a blob that is not a JSON object returns an
// error, and the caller is expected to fall back to the seed.
func DecodeSnapshot(data []byte, seed Snapshot) (Snapshot, Repair, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, Repair{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if raw == nil {
		return Snapshot{}, Repair{}, fmt.Errorf("decode snapshot: blob is not an object")
	}

	var (
		out    Snapshot
		repair Repair
	)
	sections := []snapshotSection{
		section(sectionUsers, &out.Users, seed.Users, cloneUser),
		section(sectionProposals, &out.Proposals, seed.Proposals, cloneProposal),
		section(sectionFiles, &out.Files, seed.Files, identity[domain.ProposalFile]),
		section(sectionQuestions, &out.Questions, seed.Questions, identity[domain.ProposalQuestion]),
		section(sectionAnswers, &out.Answers, seed.Answers, identity[domain.ProposalAnswer]),
		section(sectionShareTokens, &out.ShareTokens, seed.ShareTokens, identity[domain.ShareToken]),
		section(sectionCollaborations, &out.Collaborations, seed.Collaborations, identity[domain.Collaboration]),
	}
	for _, sec := range sections {
		payload, ok := raw[sec.key]
		if !ok || isNull(payload) {
			sec.fill()
			repair.Sections = append(repair.Sections, sec.key)
			continue
		}
		dropped, err := sec.decode(payload)
		if err != nil {
			sec.fill()
			repair.Sections = append(repair.Sections, sec.key)
			repair.Malformed = append(repair.Malformed, sec.key)
			continue
		}
		if dropped > 0 {
			if repair.Dropped == nil {
				repair.Dropped = make(map[string]int)
			}
			repair.Dropped[sec.key] = dropped
		}
	}

	counters := map[string]json.RawMessage{}
	if payload, ok := raw[sectionNextID]; !ok || isNull(payload) {
		repair.Sections = append(repair.Sections, sectionNextID)
	} else if err := json.Unmarshal(payload, &counters); err != nil {
		counters = map[string]json.RawMessage{}
		repair.Sections = append(repair.Sections, sectionNextID)
		repair.Malformed = append(repair.Malformed, sectionNextID)
	}
	maxIDs := maxIDsByKind(out)
	for _, kind := range domain.EntityTypes {
		ptr := out.NextID.Ptr(kind)
		if v, ok := counters[string(kind)]; ok {
			var n int64
			if err := json.Unmarshal(v, &n); err == nil {
				*ptr = n
				continue
			}
		}
		// Repaired counters must not hand out ids already present in the blob.
		next := *seed.NextID.Ptr(kind)
		if floor := maxIDs[kind] + 1; next < floor {
			next = floor
		}
		*ptr = next
		repair.Counters = append(repair.Counters, kind)
	}
	return normalizeSnapshot(out), repair, nil
}

type snapshotSection struct {
	key    string
	decode func(json.RawMessage) (int, error)
	fill   func()
}

// section decodes a top-level array record by record so one unreadable
// record does not cost the rest of the section.
func section[T any](key string, dst *[]T, seed []T, cloneFn func(T) T) snapshotSection {
	return snapshotSection{
		key: key,
		decode: func(payload json.RawMessage) (int, error) {
			var items []json.RawMessage
			if err := json.Unmarshal(payload, &items); err != nil {
				return 0, fmt.Errorf("decode %s: %w", key, err)
			}
			out := make([]T, 0, len(items))
			dropped := 0
			for _, item := range items {
				var v T
				if isNull(item) || json.Unmarshal(item, &v) != nil {
					dropped++
					continue
				}
				out = append(out, v)
			}
			*dst = out
			return dropped, nil
		},
		fill: func() { *dst = cloneSlice(seed, cloneFn) },
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func maxIDsByKind(s Snapshot) map[domain.EntityType]int64 {
	out := make(map[domain.EntityType]int64, len(domain.EntityTypes))
	bump := func(kind domain.EntityType, id int64) {
		if id > out[kind] {
			out[kind] = id
		}
	}
	for _, v := range s.Users {
		bump(domain.EntityUser, v.ID)
	}
	for _, v := range s.Proposals {
		bump(domain.EntityProposal, v.ID)
	}
	for _, v := range s.Files {
		bump(domain.EntityFile, v.ID)
	}
	for _, v := range s.Questions {
		bump(domain.EntityQuestion, v.ID)
	}
	for _, v := range s.Answers {
		bump(domain.EntityAnswer, v.ID)
	}
	for _, v := range s.ShareTokens {
		bump(domain.EntityShareToken, v.ID)
	}
	for _, v := range s.Collaborations {
		bump(domain.EntityCollaboration, v.ID)
	}
	return out
}

func normalizeSnapshot(s Snapshot) Snapshot {
	if s.Users == nil {
		s.Users = []domain.User{}
	}
	if s.Proposals == nil {
		s.Proposals = []domain.Proposal{}
	}
	if s.Files == nil {
		s.Files = []domain.ProposalFile{}
	}
	if s.Questions == nil {
		s.Questions = []domain.ProposalQuestion{}
	}
	if s.Answers == nil {
		s.Answers = []domain.ProposalAnswer{}
	}
	if s.ShareTokens == nil {
		s.ShareTokens = []domain.ShareToken{}
	}
	if s.Collaborations == nil {
		s.Collaborations = []domain.Collaboration{}
	}
	for i := range s.Proposals {
		if isNull(s.Proposals[i].Content) {
			s.Proposals[i].Content = nil
		}
	}
	return s
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Users:          cloneSlice(s.Users, cloneUser),
		Proposals:      cloneSlice(s.Proposals, cloneProposal),
		Files:          cloneSlice(s.Files, identity[domain.ProposalFile]),
		Questions:      cloneSlice(s.Questions, identity[domain.ProposalQuestion]),
		Answers:        cloneSlice(s.Answers, identity[domain.ProposalAnswer]),
		ShareTokens:    cloneSlice(s.ShareTokens, identity[domain.ShareToken]),
		Collaborations: cloneSlice(s.Collaborations, identity[domain.Collaboration]),
		NextID:         s.NextID,
	}
}

func cloneSlice[T any](in []T, cloneFn func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = cloneFn(v)
	}
	return out
}

func identity[T any](v T) T { return v }

func cloneUser(u domain.User) domain.User { return u }

func cloneProposal(p domain.Proposal) domain.Proposal {
	cp := p
	cp.Content = domain.CloneRaw(p.Content)
	if p.OwnerID != nil {
		owner := *p.OwnerID
		cp.OwnerID = &owner
	}
	return cp
}
