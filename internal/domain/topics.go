package domain

import "strings"

// topicKeywords maps each feed topic to the words that indicate it.
// Ordered: the first topic whose keywords appear in the text wins, so the
// more specific topics come before the broader ones.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"security", []string{"military", "defense", "missile", "strike", "border", "troops"}},
	{"energy", []string{"gas", "oil", "energy", "pipeline", "nuclear", "power"}},
	{"diplomacy", []string{"talks", "summit", "minister", "agreement", "sanction"}},
	{"economy", []string{"trade", "tariff", "economy", "inflation", "export", "import"}},
	{"humanitarian", []string{"aid", "refugee", "humanitarian", "evacuation", "crisis"}},
}

// TopicGeneral is the catch-all topic for text no keyword table matches.
const TopicGeneral = "general"

// InferTopic classifies free text (typically title + summary) into one of
// the feed topics by keyword scan, or TopicGeneral when nothing matches.
func InferTopic(text string) string {
	lowered := strings.ToLower(text)
	for _, entry := range topicKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.topic
			}
		}
	}
	return TopicGeneral
}
