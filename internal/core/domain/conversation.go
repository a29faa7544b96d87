package domain

import (
	"time"
)

// Step is the wizard position stored in conversation_state.current_step.
type Step string

const (
	StepHome                    Step = "home"
	StepChooseInstructionMethod Step = "choose_instruction_method"
	StepEnterSubject            Step = "enter_subject"
	StepAwaitingInstructionFile Step = "awaiting_instruction_file"
	StepSelectLevel             Step = "select_level"
	StepEnterLength             Step = "enter_length"
	StepSelectUrgency           Step = "select_urgency"
	StepEnterReferralCode       Step = "enter_referral_code"
	StepConfirmOrder            Step = "confirm_order"
	StepAwaitingPaymentProof    Step = "awaiting_payment_proof"
	StepSupport                 Step = "support"
)

// stepRank orders the linear part of the wizard. Steps that share a rank
// are alternative branches. Support sits outside the sequence.
var stepRank = map[Step]int{
	StepHome:                    0,
	StepChooseInstructionMethod: 1,
	StepEnterSubject:            2,
	StepAwaitingInstructionFile: 2,
	StepSelectLevel:             3,
	StepEnterLength:             4,
	StepSelectUrgency:           5,
	StepEnterReferralCode:       6,
	StepConfirmOrder:            7,
	StepAwaitingPaymentProof:    8,
	StepSupport:                 -1,
}

// AllSteps lists every valid step tag.
func AllSteps() []Step {
	return []Step{
		StepHome,
		StepChooseInstructionMethod,
		StepEnterSubject,
		StepAwaitingInstructionFile,
		StepSelectLevel,
		StepEnterLength,
		StepSelectUrgency,
		StepEnterReferralCode,
		StepConfirmOrder,
		StepAwaitingPaymentProof,
		StepSupport,
	}
}

// Valid reports whether s is a known step tag.
func (s Step) Valid() bool {
	_, ok := stepRank[s]
	return ok
}

// ConversationState is the only memory the bot keeps between updates.
// One row per user, overwritten on every transition.
type ConversationState struct {
	TelegramUserID  int64
	CurrentStep     Step
	NavigationStack []Step
	Draft           OrderDraft
	Revision        int64 // Compare-and-swap token; 0 means never persisted
	UpdatedAt       time.Time
}

// NewConversationState returns the initial state for a user.
func NewConversationState(telegramUserID int64) *ConversationState {
	return &ConversationState{
		TelegramUserID:  telegramUserID,
		CurrentStep:     StepHome,
		NavigationStack: []Step{},
	}
}

// Push records the step being left.
func (s *ConversationState) Push(step Step) {
	s.NavigationStack = append(s.NavigationStack, step)
}

// Pop removes and returns the most recent step.
func (s *ConversationState) Pop() (Step, bool) {
	n := len(s.NavigationStack)
	if n == 0 {
		return StepHome, false
	}
	step := s.NavigationStack[n-1]
	s.NavigationStack = s.NavigationStack[:n-1]
	return step, true
}

// Advance moves to next, remembering the current step for back.
func (s *ConversationState) Advance(next Step) {
	s.Push(s.CurrentStep)
	s.CurrentStep = next
}

// Reset returns the conversation to home with no stack and no draft.
func (s *ConversationState) Reset() {
	s.CurrentStep = StepHome
	s.NavigationStack = []Step{}
	s.Draft = OrderDraft{}
}
