// Package verify provides analysis tools for collfold modules.
//
// This package implements two complementary stages:
//
// 1. Static Lint (lint.go): Fast structural checks
//   - STRUCT checks: operand counts, shapes, literals, channel ids
//   - ROUTING checks: duplicate or negative ids in collective-permute pairs
//
// 2. Functional Simulator (funcsim.go): Splat-value interpreter
//   - Evaluates every computation once per participant
//   - Delivers collective-permute traffic through an akita event engine
//   - Lets a transformed module be compared against the original
//
// # Participants
//
// A Topology is a grid of replicas by partitions. Every participant runs
// every computation. replica-id and partition-id return the participant's
// coordinates. A collective-permute's pairs refer to replica ids when it
// has no channel id and to partition ids when it has one; data only moves
// between participants that share the other coordinate.
//
// # Values
//
// Every tensor is modeled as a splat: all elements hold the same int64.
// Predicates are 0 or 1. Parameters take ParameterValue(number, participant),
// which by default differs on every participant so that a wrong routing
// shows up as a different root value.
//
// # Usage Example
//
//	before := m.Clone()
//	if _, err := fold.NewCollectiveSelectFolder().Run(m, nil); err != nil {
//	    panic(err)
//	}
//
//	if issues := verify.RunLint(m); len(issues) > 0 {
//	    for _, issue := range issues {
//	        log.Print(issue)
//	    }
//	}
//
//	report, err := verify.CompareBehavior(before, m, verify.Topology{
//	    Replicas:   2,
//	    Partitions: 4,
//	})
//	if err != nil {
//	    panic(err)
//	}
//	report.WriteReport(os.Stdout)
//
// # Limitations
//
// - Only elementwise semantics of splat values; no real tensor contents
// - Collectives with global device ids are not simulated
// - Floating-point constants are truncated to integers
package verify

import "fmt"

// Topology is the grid of participants a module runs on.
type Topology struct {
	Replicas   int
	Partitions int
}

// Participant identifies one executing unit of a Topology.
type Participant struct {
	Replica   int
	Partition int
}

func (p Participant) String() string {
	return fmt.Sprintf("(r%d,p%d)", p.Replica, p.Partition)
}

// Participants lists the participants replica-major.
func (t Topology) Participants() []Participant {
	out := make([]Participant, 0, t.Replicas*t.Partitions)
	for r := 0; r < t.Replicas; r++ {
		for p := 0; p < t.Partitions; p++ {
			out = append(out, Participant{Replica: r, Partition: p})
		}
	}
	return out
}

// Contains reports whether p lies in the grid.
func (t Topology) Contains(p Participant) bool {
	return p.Replica >= 0 && p.Replica < t.Replicas &&
		p.Partition >= 0 && p.Partition < t.Partitions
}

// FlatID numbers participants replica-major.
func (t Topology) FlatID(p Participant) int {
	return p.Replica*t.Partitions + p.Partition
}

func (t Topology) validate() error {
	if t.Replicas < 1 || t.Partitions < 1 {
		return fmt.Errorf("invalid topology %dx%d: need at least one replica and one partition",
			t.Replicas, t.Partitions)
	}
	return nil
}

// ParticipantState captures the values one participant computed.
type ParticipantState struct {
	Values map[string]map[string]int64 // computation -> instruction -> value
}

// NewParticipantState creates an empty state.
func NewParticipantState() *ParticipantState {
	return &ParticipantState{
		Values: make(map[string]map[string]int64),
	}
}

// Write records the value of an instruction.
func (ps *ParticipantState) Write(comp, inst string, v int64) {
	vals, ok := ps.Values[comp]
	if !ok {
		vals = make(map[string]int64)
		ps.Values[comp] = vals
	}
	vals[inst] = v
}

// Read returns the value of an instruction and whether it was computed.
func (ps *ParticipantState) Read(comp, inst string) (int64, bool) {
	v, ok := ps.Values[comp][inst]
	return v, ok
}
