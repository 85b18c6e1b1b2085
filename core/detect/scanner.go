package detect

import (
	"strings"
	"unicode"

	"mindguard/core/store"
)

// Detection is the pure classification result for one text payload.
type Detection struct {
	IsCrisis       bool           `json:"isCrisis"`
	Severity       store.Severity `json:"severity,omitempty"`
	Keywords       []string       `json:"keywords,omitempty"`
	SentimentScore float64        `json:"sentimentScore"`
}

const (
	// mediumMatchThreshold is how many distinct medium-tier phrases must match
	// before acute distress is flagged as a crisis.
	mediumMatchThreshold = 2
	// upgradeSentimentFloor promotes an already-flagged severity one tier.
	upgradeSentimentFloor = -0.7
)

type Scanner struct {
	lex      *Lexicon
	positive map[string]struct{}
	negative map[string]struct{}
}

func NewScanner(lex *Lexicon) *Scanner {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Scanner{
		lex:      lex,
		positive: wordSet(lex.Positive),
		negative: wordSet(lex.Negative),
	}
}

// Scan classifies text. Tiers are evaluated in priority order: any critical
// match flags immediately, then high, then medium with the distinct-match
// threshold. Low-tier words never flag; they ride along in Keywords for
// telemetry. The sentiment upgrade never promotes a non-crisis.
func (s *Scanner) Scan(text string) Detection {
	lower := strings.ToLower(text)
	sentiment := s.Sentiment(text)

	criticalHits := matchPhrases(lower, s.lex.Critical)
	highHits := matchPhrases(lower, s.lex.High)
	mediumHits := matchPhrases(lower, s.lex.Medium)
	lowHits := matchPhrases(lower, s.lex.Low)

	keywords := make([]string, 0, len(criticalHits)+len(highHits)+len(mediumHits)+len(lowHits))
	keywords = append(keywords, criticalHits...)
	keywords = append(keywords, highHits...)
	keywords = append(keywords, mediumHits...)
	keywords = append(keywords, lowHits...)

	d := Detection{SentimentScore: sentiment, Keywords: keywords}
	switch {
	case len(criticalHits) > 0:
		d.IsCrisis = true
		d.Severity = store.SeverityCritical
	case len(highHits) > 0:
		d.IsCrisis = true
		d.Severity = store.SeverityHigh
	case len(mediumHits) >= mediumMatchThreshold:
		d.IsCrisis = true
		d.Severity = store.SeverityMedium
	}
	if d.IsCrisis && sentiment < upgradeSentimentFloor {
		switch d.Severity {
		case store.SeverityHigh:
			d.Severity = store.SeverityCritical
		case store.SeverityMedium:
			d.Severity = store.SeverityHigh
		}
	}
	return d
}

// HasCrisisIndicators reports whether any flagging-tier phrase occurs. Used
// by the risk scorer when grading journal entries.
func (s *Scanner) HasCrisisIndicators(text string) bool {
	lower := strings.ToLower(text)
	return len(matchPhrases(lower, s.lex.Critical)) > 0 ||
		len(matchPhrases(lower, s.lex.High)) > 0 ||
		len(matchPhrases(lower, s.lex.Medium)) > 0
}

// Sentiment scores text in [-1,1]: positive minus negative word hits,
// normalized by word count.
func (s *Scanner) Sentiment(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	score := 0
	for _, tok := range tokens {
		if _, ok := s.positive[tok]; ok {
			score++
		}
		if _, ok := s.negative[tok]; ok {
			score--
		}
	}
	normalized := float64(score) / float64(len(tokens))
	if normalized > 1 {
		return 1
	}
	if normalized < -1 {
		return -1
	}
	return normalized
}

// Message returns the fixed user-facing support message for a severity.
func Message(severity store.Severity) string {
	switch severity {
	case store.SeverityCritical:
		return "We're really concerned about you. Please reach out to a crisis line right now — you can call or text 988 any time. You don't have to face this alone."
	case store.SeverityHigh:
		return "It sounds like you're going through something very painful. Please consider talking to a counselor today; the campus support line is available 24/7."
	case store.SeverityMedium:
		return "It sounds like things are really hard right now. Talking to someone can help — your campus counseling center is there for you."
	case store.SeverityLow:
		return "Thanks for sharing how you're feeling. Checking in with yourself is a good step; support is available whenever you want it."
	}
	return ""
}

func matchPhrases(lower string, phrases []string) []string {
	var hits []string
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			hits = append(hits, phrase)
		}
	}
	return hits
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
