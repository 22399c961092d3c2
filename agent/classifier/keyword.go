// Package classifier provides implementations of the classifier port: a
// deterministic keyword matcher and an LLM-backed classifier. The keyword
// matcher is also the backstop when no model is configured.
package classifier

import (
	"context"
	"strings"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

// intentKeywords are checked in order; the first bucket with a hit wins.
// not_interested outranks confirming so "no thanks" never reads as a yes.
var intentKeywords = []struct {
	intent statex.Intent
	words  []string
}{
	{statex.IntentNotInterested, []string{
		"not interested", "no thanks", "no thank you", "remove me",
		"don't call", "dont call", "stop calling", "take me off",
	}},
	{statex.IntentBusy, []string{
		"busy", "not now", "another time", "call me later", "in a meeting",
		"bad time", "can't talk", "cant talk",
	}},
	{statex.IntentConfirming, []string{
		"yes", "yeah", "yep", "sure", "sounds good", "that works", "works for me",
		"perfect", "confirm", "book it", "let's do it", "lets do it", "ok", "okay",
	}},
	{statex.IntentQuestion, []string{
		"?", "who is this", "who's this", "whos this", "what is this",
		"what's this", "whats this", "how does", "how much", "what does",
		"tell me more", "what do you",
	}},
	{statex.IntentInterested, []string{
		"interested", "sounds interesting", "go on", "i'm listening",
		"im listening", "schedule", "book a call", "set up",
	}},
}

var toneKeywords = []struct {
	tone  statex.Tone
	words []string
}{
	{statex.ToneSkeptical, []string{
		"scam", "spam", "why should", "don't believe", "dont believe",
		"doubt", "suspicious", "prove it", "really?", "is this legit",
	}},
	{statex.ToneRushed, []string{
		"quick", "hurry", "no time", "make it fast", "busy", "in a meeting",
	}},
	{statex.ToneFriendly, []string{
		"thanks", "thank you", "great", "awesome", "appreciate", "haha", "nice",
	}},
}

// Keyword is a pure, deterministic classifier over keyword tables.
type Keyword struct{}

func NewKeyword() *Keyword {
	return &Keyword{}
}

func (k *Keyword) Classify(ctx context.Context, utterance string, historyTail []statex.Turn) (contractx.Classification, error) {
	text := strings.ToLower(strings.TrimSpace(utterance))

	cls := contractx.Classification{
		Intent:     statex.IntentOther,
		Tone:       statex.ToneNeutral,
		Confidence: 0.2,
	}
	if text == "" {
		return cls, nil
	}

	for _, bucket := range intentKeywords {
		if matchesAny(text, bucket.words) {
			cls.Intent = bucket.intent
			cls.Confidence = 0.9
			break
		}
	}
	for _, bucket := range toneKeywords {
		if matchesAny(text, bucket.words) {
			cls.Tone = bucket.tone
			break
		}
	}
	return cls, nil
}

func matchesAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
