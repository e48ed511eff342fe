package core

import (
	"strings"
	"unicode/utf8"
)

// minFragmentLen is the shortest sentence fragment, in characters, worth
// echoing back.
const minFragmentLen = 10

// elaborationLeadIn prefixes the question built from the proposal's own text.
const elaborationLeadIn = "Can you elaborate on the following points from your description: "

var questionTemplates = []string{
	"What are the primary objectives and goals of this project?",
	"What is the expected timeline for completing this project?",
	"What is the budget allocated for this project?",
	"Are there any specific compliance or regulatory requirements we should be aware of?",
	"Who are the key stakeholders involved in this project?",
	"How will you measure the success of this project?",
}

// GeneratedQuestion is a candidate question with its position in the output.
type GeneratedQuestion struct {
	Question string
	Order    int
}

// GenerateQuestions derives candidate questions from a proposal's title and
// description: the fixed template bank, then one elaboration question echoing
// the first two usable sentence fragments when any exist. It never fails.
func GenerateQuestions(title, description string) []GeneratedQuestion {
	var out []GeneratedQuestion
	seen := make(map[string]struct{}, len(questionTemplates)+1)
	emit := func(text string) {
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		out = append(out, GeneratedQuestion{Question: text, Order: len(out)})
	}
	for _, tmpl := range questionTemplates {
		emit(tmpl)
	}
	fragments := sentenceFragments(title + ". " + description)
	if len(fragments) > 0 {
		if len(fragments) > 2 {
			fragments = fragments[:2]
		}
		emit(elaborationLeadIn + strings.Join(fragments, ". "))
	}
	return out
}

func sentenceFragments(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) < minFragmentLen {
			continue
		}
		out = append(out, p)
	}
	return out
}
