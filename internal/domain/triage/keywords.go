package triage

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultSymptomLabel is returned by ExtractSymptomLabel when no rule matches.
const DefaultSymptomLabel = "your symptoms"

// emergencyPhrases are matched case-insensitively as substrings. Any single
// match routes the conversation to emergency handling.
var emergencyPhrases = []string{
	// cardiac
	"chest pain",
	"chest pressure",
	"chest tightness",
	"tightness in my chest",
	"crushing chest",
	"heart attack",
	// breathing
	"can't breathe",
	"cannot breathe",
	"can not breathe",
	"difficulty breathing",
	"trouble breathing",
	"struggling to breathe",
	"shortness of breath",
	"not breathing",
	"choking",
	"throat is closing",
	"throat closing",
	// stroke; bare "stroke" would also match heatstroke and backstroke
	"a stroke",
	"stroke symptoms",
	"stroke signs",
	"signs of stroke",
	"face drooping",
	"facial droop",
	"slurred speech",
	"sudden numbness",
	"numb on one side",
	"weakness on one side",
	// bleeding
	"severe bleeding",
	"bleeding heavily",
	"won't stop bleeding",
	"coughing up blood",
	"vomiting blood",
	// consciousness
	"unconscious",
	"unresponsive",
	"passed out",
	"fainted",
	"loss of consciousness",
	"lost consciousness",
	"seizure",
	// neuro and vision
	"worst headache of my life",
	"worst headache ever",
	"vision loss",
	"lost my vision",
	"sudden blindness",
	// other
	"overdose",
	"anaphylaxis",
	"suicidal",
	"kill myself",
}

// IsEmergencyUtterance reports whether text contains any emergency phrase.
func IsEmergencyUtterance(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range emergencyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

type symptomRule struct {
	phrases []string
	label   string
}

// symptomRules is evaluated top to bottom and the first rule with a matching
// phrase wins. Specific conditions must stay ahead of the generic pain rule.
var symptomRules = []symptomRule{
	{phrases: []string{"asthma", "wheezing", "wheezy", "inhaler"}, label: "asthma symptoms"},
	{phrases: []string{"neck pain", "stiff neck", "neck hurts", "sore neck"}, label: "neck pain"},
	{phrases: []string{"back pain", "back hurts", "backache", "lower back"}, label: "back pain"},
	{phrases: []string{"migraine", "headache", "head hurts", "head is pounding"}, label: "headache"},
	{phrases: []string{"sore throat", "throat hurts", "scratchy throat", "strep"}, label: "sore throat"},
	{phrases: []string{"fever", "feverish", "chills", "temperature"}, label: "fever"},
	{phrases: []string{"cough", "runny nose", "stuffy nose", "congestion", "sneezing", "cold"}, label: "cold symptoms"},
	{phrases: []string{"stomach", "nausea", "nauseous", "vomiting", "diarrhea", "belly", "abdominal"}, label: "stomach upset"},
	{phrases: []string{"fatigue", "tired", "exhausted", "no energy", "worn out"}, label: "fatigue"},
	{phrases: []string{"pain", "ache", "hurts", "sore"}, label: "pain"},
}

// ExtractSymptomLabel returns the label of the first symptom rule matching
// text, or DefaultSymptomLabel.
func ExtractSymptomLabel(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range symptomRules {
		if containsAny(lower, rule.phrases) {
			return rule.label
		}
	}
	return DefaultSymptomLabel
}

var severityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{1,2})\s*(?:/|out of)\s*10\b`),
	regexp.MustCompile(`\b(?:pain|severity)(?: level)? is (?:a |about |around )?(\d{1,2})\b`),
}

// ExtractSeverity returns an explicit 1-10 severity rating mentioned in text.
func ExtractSeverity(text string) (int, bool) {
	lower := strings.ToLower(text)
	for _, re := range severityPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > 10 {
			continue
		}
		return n, true
	}
	return 0, false
}

type progressionRule struct {
	phrases []string
	value   Progression
}

// progressionRules is first-match-wins; "worse" is checked first so that a
// mixed report is treated as the riskier trend.
var progressionRules = []progressionRule{
	{phrases: []string{"worse", "worsening", "getting bad", "spreading"}, value: ProgressionWorse},
	{phrases: []string{"better", "improving", "easing", "going away"}, value: ProgressionBetter},
	{phrases: []string{"same", "no change", "not changing", "hasn't changed", "steady"}, value: ProgressionSame},
}

// ExtractProgression returns the symptom trend mentioned in text.
func ExtractProgression(text string) (Progression, bool) {
	lower := strings.ToLower(text)
	for _, rule := range progressionRules {
		if containsAny(lower, rule.phrases) {
			return rule.value, true
		}
	}
	return "", false
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
