package models

import (
	"errors"
	"fmt"
	"sort"
)

// Actor is who drives a status change. Owners and admins act as
// reviewers on applications; system covers webhooks and cron jobs.
type Actor string

const (
	ActorTenant Actor = "tenant"
	ActorOwner  Actor = "owner"
	ActorAdmin  Actor = "admin"
	ActorSystem Actor = "system"
)

var (
	ErrTransitionNotDefined = errors.New("transition not defined")
	ErrActorNotPermitted    = errors.New("actor not permitted for transition")
	ErrAlreadyInState       = errors.New("record already in requested state")
)

// Transition is one row of a transition table.
type Transition[S ~string] struct {
	From   S
	To     S
	Actors []Actor
}

// StateMachine is an immutable transition table keyed by (from, to).
type StateMachine[S ~string] struct {
	name     string
	table    map[S]map[S][]Actor
	terminal map[S]bool
}

// NewStateMachine builds a machine from its rules. States that appear only
// as a target are terminal.
func NewStateMachine[S ~string](name string, rules []Transition[S]) *StateMachine[S] {
	m := &StateMachine[S]{
		name:     name,
		table:    make(map[S]map[S][]Actor),
		terminal: make(map[S]bool),
	}
	for _, r := range rules {
		if m.table[r.From] == nil {
			m.table[r.From] = make(map[S][]Actor)
		}
		m.table[r.From][r.To] = append(m.table[r.From][r.To], r.Actors...)
	}
	for _, r := range rules {
		if _, ok := m.table[r.To]; !ok {
			m.terminal[r.To] = true
		}
	}
	return m
}

// Check reports whether actor may move a record from `from` to `to`.
func (m *StateMachine[S]) Check(from, to S, actor Actor) error {
	if from == to {
		return fmt.Errorf("%s %s: %w", m.name, from, ErrAlreadyInState)
	}
	actors, ok := m.table[from][to]
	if !ok {
		return fmt.Errorf("%s %s -> %s: %w", m.name, from, to, ErrTransitionNotDefined)
	}
	for _, a := range actors {
		if a == actor {
			return nil
		}
	}
	return fmt.Errorf("%s %s -> %s by %s: %w", m.name, from, to, actor, ErrActorNotPermitted)
}

// Next lists the states actor can move to from `from`, sorted.
func (m *StateMachine[S]) Next(from S, actor Actor) []S {
	var out []S
	for to, actors := range m.table[from] {
		for _, a := range actors {
			if a == actor {
				out = append(out, to)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *StateMachine[S]) IsTerminal(s S) bool { return m.terminal[s] }

// Known reports whether s appears anywhere in the table.
func (m *StateMachine[S]) Known(s S) bool {
	if _, ok := m.table[s]; ok {
		return true
	}
	return m.terminal[s]
}
