// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Label identifies a report section. It is matched verbatim against the
// rendered text of the primary document.
type Label string

// InsertSet is the ordered list of PDF files spliced in after the page on
// which Label is found. An empty Files list is legal and inserts nothing.
type InsertSet struct {
	Label Label    `json:"label" yaml:"label"`
	Files []string `json:"files" yaml:"files"`
}

// KeywordPageMap maps each label that was found to the zero-based index of
// the page it anchors to. Labels that were not found are absent.
type KeywordPageMap map[Label]int

// Labels returns the labels of sections in order.
func Labels(sections []InsertSet) []Label {
	labels := make([]Label, len(sections))
	for i, s := range sections {
		labels[i] = s.Label
	}
	return labels
}

// ValidateSections reports an error for an empty or repeated label. The
// slice order of sections is significant: it decides the insertion order of
// labels that share an anchor page.
func ValidateSections(sections []InsertSet) error {
	seen := make(map[Label]bool, len(sections))
	for i, s := range sections {
		if s.Label == "" {
			return fmt.Errorf("section %d has an empty label", i+1)
		}
		if seen[s.Label] {
			return fmt.Errorf("duplicate section label %q", s.Label)
		}
		seen[s.Label] = true
	}
	return nil
}

// RunState is the lifecycle state of one pipeline run.
type RunState string

const (
	StateIdle       RunState = "idle"
	StateConverting RunState = "converting"
	StateLocating   RunState = "locating"
	StateDone       RunState = "done"
	StateFailed     RunState = "failed"
)

// Terminal reports whether no further transition can leave s.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Result is the single terminal outcome of a pipeline run. Exactly one of
// OutputPath (State done) or Err (State failed) is meaningful.
type Result struct {
	State      RunState       `json:"state" yaml:"state"`
	OutputPath string         `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Err        string         `json:"error,omitempty" yaml:"error,omitempty"`
	Anchors    KeywordPageMap `json:"anchors,omitempty" yaml:"anchors,omitempty"`
	Pages      int            `json:"pages,omitempty" yaml:"pages,omitempty"`
	Duration   time.Duration  `json:"duration" yaml:"duration"`
}

// OK reports whether the run finished successfully.
func (r Result) OK() bool {
	return r.State == StateDone
}
