package triage

import (
	"fmt"
	"strings"
)

// ClosingQuestion ends every recommendation.
const ClosingQuestion = "How does this sound to you?"

// CarePlan is a structured self-care response for one symptom category.
type CarePlan struct {
	Category     string
	Opener       string
	Steps        [3]string
	FollowUpDays int
	RedFlags     []string
}

// Render formats the plan as the text shown to the patient.
func (p CarePlan) Render() string {
	var b strings.Builder
	b.WriteString(p.Opener)
	b.WriteString("\n\nHere are a few things that can help:\n")
	for i, step := range p.Steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "\nIf you're not improving in %d days, contact your provider.\n", p.FollowUpDays)
	fmt.Fprintf(&b, "Seek immediate care if you notice %s.\n\n", joinOr(p.RedFlags))
	b.WriteString(ClosingQuestion)
	return b.String()
}

type carePlanRule struct {
	keywords []string
	plan     CarePlan
}

// carePlans is matched against the symptom label in order; the first rule
// with a matching keyword wins.
var carePlans = []carePlanRule{
	{
		keywords: []string{"asthma"},
		plan: CarePlan{
			Category: "asthma",
			Opener:   "I'm sorry your asthma is acting up. Flare-ups can be frightening, and it's good that you're paying attention to them.",
			Steps: [3]string{
				"Use your rescue inhaler as prescribed in your asthma action plan.",
				"Sit upright, breathe slowly, and move away from smoke, dust, or other triggers.",
				"Keep track of how often you need your inhaler over the next day.",
			},
			FollowUpDays: 1,
			RedFlags:     []string{"lips or fingernails turning blue", "trouble speaking in full sentences", "no relief from your rescue inhaler"},
		},
	},
	{
		keywords: []string{"fever"},
		plan: CarePlan{
			Category: "fever",
			Opener:   "I'm sorry you're running a fever. Feeling hot and achy is exhausting.",
			Steps: [3]string{
				"Drink plenty of fluids such as water, broth, or electrolyte drinks.",
				"Rest and dress in light layers so your body can cool down.",
				"Take acetaminophen or ibuprofen as directed on the label if you can safely use them.",
			},
			FollowUpDays: 3,
			RedFlags:     []string{"a temperature above 39.5°C (103°F)", "a stiff neck or rash", "confusion or trouble staying awake"},
		},
	},
	{
		keywords: []string{"neck"},
		plan: CarePlan{
			Category: "neck pain",
			Opener:   "I'm sorry your neck is bothering you. Neck pain can make everything from sleeping to driving uncomfortable.",
			Steps: [3]string{
				"Apply a warm compress or heating pad for 15 to 20 minutes a few times a day.",
				"Do gentle range-of-motion stretches and avoid sudden movements.",
				"Check your posture and screen height, and take regular breaks.",
			},
			FollowUpDays: 7,
			RedFlags:     []string{"a fever with a stiff neck", "numbness or weakness in your arms", "pain after a fall or injury"},
		},
	},
	{
		keywords: []string{"fatigue", "tired"},
		plan: CarePlan{
			Category: "fatigue",
			Opener:   "I'm sorry you've been feeling so worn down. Ongoing tiredness can really wear on you.",
			Steps: [3]string{
				"Aim for a regular sleep schedule with seven to nine hours a night.",
				"Eat regular balanced meals and stay hydrated through the day.",
				"Add light activity such as a short walk, and limit caffeine late in the day.",
			},
			FollowUpDays: 14,
			RedFlags:     []string{"fainting or feeling like you might pass out", "a racing or irregular heartbeat", "unexplained weight loss"},
		},
	},
	{
		keywords: []string{"headache", "migraine"},
		plan: CarePlan{
			Category: "headache",
			Opener:   "I'm sorry you're dealing with a headache. They can make it really hard to focus.",
			Steps: [3]string{
				"Rest in a quiet, dark room and drink a glass of water.",
				"Take acetaminophen or ibuprofen as directed on the label if you can safely use them.",
				"Place a cool compress on your forehead or the back of your neck.",
			},
			FollowUpDays: 3,
			RedFlags:     []string{"a sudden, severe headache", "confusion, weakness, or trouble speaking", "a headache after a head injury"},
		},
	},
	{
		keywords: []string{"throat"},
		plan: CarePlan{
			Category: "sore throat",
			Opener:   "I'm sorry your throat is sore. It can make eating and talking uncomfortable.",
			Steps: [3]string{
				"Gargle with warm salt water a few times a day.",
				"Sip warm tea with honey or suck on throat lozenges.",
				"Rest your voice and use a humidifier if the air is dry.",
			},
			FollowUpDays: 5,
			RedFlags:     []string{"trouble swallowing or breathing", "drooling or being unable to open your mouth", "a high fever with swollen glands"},
		},
	},
	{
		keywords: []string{"cold", "cough"},
		plan: CarePlan{
			Category: "cold",
			Opener:   "I'm sorry you're feeling under the weather. Colds are miserable even when they're mild.",
			Steps: [3]string{
				"Get extra rest and drink warm fluids.",
				"Use saline spray or a humidifier to ease congestion.",
				"Try honey in warm water for a cough if you're over one year old.",
			},
			FollowUpDays: 10,
			RedFlags:     []string{"shortness of breath", "a fever that lasts more than three days", "coughing up blood"},
		},
	},
	{
		keywords: []string{"stomach", "nausea"},
		plan: CarePlan{
			Category: "stomach",
			Opener:   "I'm sorry your stomach is upset. That can leave you feeling drained.",
			Steps: [3]string{
				"Sip clear fluids or an oral rehydration solution in small amounts.",
				"Eat bland foods such as toast, rice, or bananas once you can keep fluids down.",
				"Avoid alcohol, caffeine, and greasy or spicy food for now.",
			},
			FollowUpDays: 2,
			RedFlags:     []string{"blood in your vomit or stool", "severe belly pain", "signs of dehydration like no urination for eight hours"},
		},
	},
	{
		keywords: []string{"pain", "ache"},
		plan: CarePlan{
			Category: "pain",
			Opener:   "I'm sorry you're in pain. It's hard to feel like yourself when something hurts.",
			Steps: [3]string{
				"Rest the sore area and avoid activities that make it worse.",
				"Use ice for the first two days, then switch to warmth.",
				"Take acetaminophen or ibuprofen as directed on the label if you can safely use them.",
			},
			FollowUpDays: 7,
			RedFlags:     []string{"pain that becomes severe or sudden", "numbness, tingling, or weakness", "swelling, redness, or warmth that spreads"},
		},
	},
}

var defaultCarePlan = CarePlan{
	Category: "general",
	Opener:   "Thank you for telling me what's going on. I'm sorry you're not feeling well.",
	Steps: [3]string{
		"Rest and give your body time to recover.",
		"Stay hydrated and eat light, regular meals.",
		"Write down your symptoms and when they happen so you can share them with your provider.",
	},
	FollowUpDays: 3,
	RedFlags:     []string{"symptoms that suddenly get much worse", "trouble breathing", "confusion or fainting"},
}

// CarePlanFor returns the care plan for a symptom label.
func CarePlanFor(symptomLabel string) CarePlan {
	lower := strings.ToLower(symptomLabel)
	for _, rule := range carePlans {
		if containsAny(lower, rule.keywords) {
			return rule.plan
		}
	}
	return defaultCarePlan
}

// Recommend returns the self-care response text for a symptom label.
func Recommend(symptomLabel string) string {
	return CarePlanFor(symptomLabel).Render()
}

func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return "anything that worries you"
	case 1:
		return items[0]
	case 2:
		return items[0] + " or " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", or " + items[len(items)-1]
}
