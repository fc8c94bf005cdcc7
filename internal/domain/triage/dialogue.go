package triage

import (
	"fmt"
	"strings"
)

// Fixed dialogue messages.
const (
	GreetingMessage = "Hi, I'm the triage assistant. I can help you figure out what to do about how you're feeling. What's bothering you today?"

	EmergencyScript = "I'm concerned about what you're describing. These symptoms may need emergency care right away. " +
		"Please call 911 now or go to the nearest emergency room. If you're alone, unlock your door and stay on the line with the dispatcher."

	EmergencyHoldMessage = "Please seek emergency care now. Call 911 or go to the nearest emergency room. " +
		"I can't continue this conversation until you've gotten help."

	ConcernsQuestion = "Thanks, that helps. What concerns you most about how you're feeling right now?"

	ClarifyMessage = "I want to make sure I understand. Does this plan sound okay to you, or is there something else you'd like to talk about?"

	ClosingMessage = "I'm glad that helps. Take care of yourself, and remember to reach out to your provider if anything changes. " +
		"Is there anything else I can help you with?"

	SignOffMessage = "Okay. Take care, and don't hesitate to come back if you need anything."

	EndedMessage = "This conversation has ended. Start a new session if you'd like to talk about something else."

	RestartMessage = "Of course. What else is bothering you?"

	RepromptMessage = "Sorry, I lost track of our conversation. Let's start again. What's bothering you today?"
)

// StepResult is the dialogue controller's decision for one user message.
type StepResult struct {
	Text      string  `json:"text"`
	NextPhase Phase   `json:"next_phase"`
	Symptom   *string `json:"symptom,omitempty"`
}

type replyRule struct {
	phrases []string
	next    Phase
	text    string
}

// recommendationReplies is checked in order after a care plan has been given.
// Affirmative phrases come first so they win over negative ones.
var recommendationReplies = []replyRule{
	{
		phrases: []string{"yes", "sound", "thank", "helpful", "great", "good", "will try", "ok", "okay"},
		next:    PhaseClosing,
		text:    ClosingMessage,
	},
	{
		phrases: []string{"no", "that's all", "nothing else", "bye"},
		next:    PhaseEnded,
		text:    SignOffMessage,
	},
}

var continuePhrases = []string{"yes", "actually", "one more"}

// Step computes the next dialogue phase and response for userText. symptom is
// the label the conversation is currently about and may be nil.
func Step(phase Phase, userText string, symptom *string) StepResult {
	if phase == PhaseEmergency {
		return StepResult{Text: EmergencyHoldMessage, NextPhase: PhaseEmergency, Symptom: symptom}
	}
	if IsEmergencyUtterance(userText) {
		return StepResult{Text: EmergencyScript, NextPhase: PhaseEmergency, Symptom: symptom}
	}

	lower := strings.ToLower(userText)
	switch phase {
	case PhaseGreeting:
		label := ExtractSymptomLabel(userText)
		return StepResult{Text: timelineQuestion(label), NextPhase: PhaseAskedTimeline, Symptom: stringPtr(label)}

	case PhaseAskedTimeline:
		return StepResult{Text: ConcernsQuestion, NextPhase: PhaseAskedConcerns, Symptom: symptom}

	case PhaseAskedConcerns:
		label := DefaultSymptomLabel
		if symptom != nil {
			label = *symptom
		}
		return StepResult{Text: Recommend(label), NextPhase: PhaseGaveRecommendations, Symptom: symptom}

	case PhaseGaveRecommendations:
		for _, rule := range recommendationReplies {
			if containsAny(lower, rule.phrases) {
				return StepResult{Text: rule.text, NextPhase: rule.next, Symptom: symptom}
			}
		}
		return StepResult{Text: ClarifyMessage, NextPhase: PhaseGaveRecommendations, Symptom: symptom}

	case PhaseClosing:
		if containsAny(lower, continuePhrases) {
			return StepResult{Text: RestartMessage, NextPhase: PhaseGreeting}
		}
		return StepResult{Text: SignOffMessage, NextPhase: PhaseEnded, Symptom: symptom}

	case PhaseEnded:
		return StepResult{Text: EndedMessage, NextPhase: PhaseEnded, Symptom: symptom}
	}

	return StepResult{Text: RepromptMessage, NextPhase: PhaseGreeting}
}

func timelineQuestion(label string) string {
	return fmt.Sprintf("I'm sorry to hear about %s. How long have you been experiencing this, "+
		"and is it getting better, worse, or staying the same?", label)
}
