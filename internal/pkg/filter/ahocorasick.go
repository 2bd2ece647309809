// Package filter provides multi-pattern matching over text extracted from
// video frames. Restricted terms are matched in one pass with Aho-Corasick.
package filter

import (
	"strings"
	"sync"
	"unicode"
)

// Pattern is a restricted term with its policy category.
type Pattern struct {
	Term     string
	Category string
}

// Match is one occurrence of a restricted term.
type Match struct {
	Term     string
	Category string
	Start    int
}

type node struct {
	children map[rune]*node
	fail     *node
	outputs  []Pattern
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Matcher matches a fixed set of restricted terms. Build replaces the whole
// automaton; FindAll is safe for concurrent use between builds.
type Matcher struct {
	mu   sync.RWMutex
	root *node
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{root: newNode()}
}

// Build constructs the automaton from patterns, replacing any prior set.
func (m *Matcher) Build(patterns []Pattern) {
	root := newNode()
	for _, p := range patterns {
		term := Normalize(p.Term)
		if term == "" {
			continue
		}
		cur := root
		for _, r := range term {
			next, ok := cur.children[r]
			if !ok {
				next = newNode()
				cur.children[r] = next
			}
			cur = next
		}
		cur.outputs = append(cur.outputs, Pattern{Term: term, Category: p.Category})
	}

	// BFS to wire failure links.
	queue := make([]*node, 0, len(root.children))
	for _, child := range root.children {
		child.fail = root
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for r, child := range cur.children {
			f := cur.fail
			for f != nil {
				if next, ok := f.children[r]; ok {
					child.fail = next
					break
				}
				f = f.fail
			}
			if child.fail == nil {
				child.fail = root
			}
			child.outputs = append(child.outputs, child.fail.outputs...)
			queue = append(queue, child)
		}
	}

	m.mu.Lock()
	m.root = root
	m.mu.Unlock()
}

// FindAll returns every restricted term occurring in text.
func (m *Matcher) FindAll(text string) []Match {
	m.mu.RLock()
	root := m.root
	m.mu.RUnlock()

	var matches []Match
	cur := root
	for i, r := range Normalize(text) {
		for cur != root && cur.children[r] == nil {
			cur = cur.fail
		}
		if next, ok := cur.children[r]; ok {
			cur = next
		}
		for _, out := range cur.outputs {
			matches = append(matches, Match{
				Term:     out.Term,
				Category: out.Category,
				Start:    i - len(out.Term) + 1,
			})
		}
	}
	return matches
}

// Normalize lowercases text and collapses runs of whitespace to one space.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteRune(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
