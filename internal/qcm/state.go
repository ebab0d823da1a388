//-------------------------------------------------------------------------
//
// HybridRAG Core
//
// Copyright (c) 2026, HybridRAG Core Contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package qcm implements the QCM Orchestrator (C9): a conversational
// parameter-collection state machine followed by a two-phase generation
// pipeline (question synthesis, then per-question answer and distractor
// synthesis).
package qcm

import (
	"strconv"
	"strings"
)

// Phase is one state in the parameter-collection conversation.
type Phase string

const (
	PhaseAskTopic      Phase = "ask_topic"
	PhaseAskDifficulty Phase = "ask_difficulty"
	PhaseAskCount      Phase = "ask_count"
	PhaseConfirm       Phase = "confirm"
	PhaseRunning       Phase = "running"
	PhaseDone          Phase = "done"
)

// Difficulty is one of the three supported question difficulties.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// State is the conversational parameter-collection state. It is a pure
// value: the State Manager never mutates a State in place, it returns the
// next one.
type State struct {
	Phase      Phase
	Topic      string
	Difficulty Difficulty
	Count      int
}

// NewState returns the conversation's initial state.
func NewState() State {
	return State{Phase: PhaseAskTopic}
}

// Advance applies one user turn to the state and returns the next state
// plus the prompt to show the user next. On malformed input it returns the
// same phase with a re-prompt, per the state machine's contract.
func Advance(s State, userText string) (State, string) {
	text := strings.TrimSpace(userText)

	switch s.Phase {
	case PhaseAskTopic:
		if text == "" {
			return s, "Please describe the topic you'd like questions on."
		}
		s.Topic = text
		s.Phase = PhaseAskDifficulty
		return s, "What difficulty would you like: easy, medium, or hard?"

	case PhaseAskDifficulty:
		d, ok := parseDifficulty(text)
		if !ok {
			return s, "Please choose a difficulty: easy, medium, or hard."
		}
		s.Difficulty = d
		s.Phase = PhaseAskCount
		return s, "How many questions would you like (1-50)?"

	case PhaseAskCount:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > 50 {
			return s, "Please enter a number of questions between 1 and 50."
		}
		s.Count = n
		s.Phase = PhaseConfirm
		return s, confirmPrompt(s)

	case PhaseConfirm:
		switch {
		case isAffirmative(text):
			s.Phase = PhaseRunning
			return s, "Generating your questions now..."
		case isNegative(text):
			s.Phase = PhaseAskTopic
			s.Topic, s.Difficulty, s.Count = "", "", 0
			return s, "No problem. What topic would you like questions on?"
		default:
			return s, confirmPrompt(s)
		}

	default:
		return s, ""
	}
}

func confirmPrompt(s State) string {
	return "Topic: " + s.Topic + ", difficulty: " + string(s.Difficulty) + ", count: " + strconv.Itoa(s.Count) + ". Shall I proceed?"
}

func parseDifficulty(text string) (Difficulty, bool) {
	switch strings.ToLower(text) {
	case "easy":
		return DifficultyEasy, true
	case "medium":
		return DifficultyMedium, true
	case "hard":
		return DifficultyHard, true
	default:
		return "", false
	}
}

var affirmatives = []string{"oui", "yes", "ok", "okay", "go", "sure", "d'accord", "yep", "yeah"}
var negatives = []string{"non", "no", "nope", "cancel", "stop"}

func isAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, a := range affirmatives {
		if t == a {
			return true
		}
	}
	return false
}

func isNegative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, n := range negatives {
		if t == n {
			return true
		}
	}
	return false
}
