// Package detect classifies free text into crisis severity tiers using fixed
// keyword lexicons plus a bag-of-words sentiment heuristic. Scanning is pure;
// persistence belongs to the crisis service.
package detect

// Lexicon holds the tiered crisis phrase lists and the sentiment word lists.
// It is immutable configuration injected at construction so tests can
// substitute their own.
type Lexicon struct {
	// Critical phrases signal explicit suicidal intent or method.
	Critical []string
	// High phrases signal self-harm or hopelessness.
	High []string
	// Medium phrases signal acute distress; two distinct matches are required
	// to flag, one alone is too common to act on.
	Medium []string
	// Low words are everyday negative affect, kept for telemetry only.
	Low []string

	Positive []string
	Negative []string
}

// DefaultLexicon is the production lexicon. Phrase order within a tier is the
// detection priority order.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Critical: []string{
			"kill myself",
			"end my life",
			"want to die",
			"suicide plan",
			"better off dead",
			"no reason to live",
			"going to end it",
			"say goodbye forever",
		},
		High: []string{
			"hurt myself",
			"cut myself",
			"self-harm",
			"self harm",
			"hopeless",
			"can't go on",
			"cant go on",
			"no way out",
			"give up on everything",
			"hate my life",
		},
		Medium: []string{
			"anxious",
			"panic",
			"scared",
			"overwhelmed",
			"can't cope",
			"cant cope",
			"falling apart",
			"breaking down",
			"desperate",
			"worthless",
		},
		Low: []string{
			"sad",
			"tired",
			"stressed",
			"lonely",
			"upset",
			"worried",
			"down",
		},
		Positive: []string{
			"happy", "good", "great", "better", "hopeful", "grateful", "calm",
			"proud", "excited", "relaxed", "loved", "improving", "okay", "fine",
		},
		Negative: []string{
			"sad", "bad", "awful", "terrible", "worse", "hopeless", "worthless",
			"miserable", "alone", "lonely", "scared", "anxious", "tired",
			"exhausted", "angry", "hurt", "pain", "crying", "hate", "afraid",
		},
	}
}
