package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

type stubClassifier struct {
	cls       contractx.Classification
	err       error
	gotTail   []statex.Turn
	utterance string
}

func (s *stubClassifier) Classify(ctx context.Context, utterance string, tail []statex.Turn) (contractx.Classification, error) {
	s.utterance = utterance
	s.gotTail = tail
	if s.err != nil {
		return contractx.Classification{}, s.err
	}
	return s.cls, nil
}

type stubExtractor struct {
	slots map[string]statex.SlotValue
}

func (s *stubExtractor) Extract(utterance string, reference time.Time) map[string]statex.SlotValue {
	return s.slots
}

func classifyTurnState(t *testing.T) *TurnState {
	t.Helper()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	st := statex.NewConversationState("s1", statex.Lead{ID: "l1", Name: "Jane Doe"}, now)
	for i := 0; i < 8; i++ {
		st.AppendTurn(statex.Turn{Role: statex.RoleUser, Text: "older"})
	}
	return &TurnState{SessionID: "s1", Utterance: "tomorrow at 2pm works", Now: now, Session: st}
}

func TestClassifyAndExtractJoinsBothResults(t *testing.T) {
	t.Parallel()

	in := classifyTurnState(t)
	cls := &stubClassifier{cls: contractx.Classification{Intent: statex.IntentConfirming, Tone: statex.ToneFriendly, Confidence: 0.8}}
	at := time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC)
	ext := &stubExtractor{slots: map[string]statex.SlotValue{
		statex.SlotMeetingTime: {Status: statex.SlotValid, Time: at},
	}}

	out, err := ClassifyAndExtract(context.Background(), in, cls, ext)
	if err != nil {
		t.Fatalf("ClassifyAndExtract() error = %v", err)
	}
	if out.Degraded {
		t.Fatal("successful classification must not be marked degraded")
	}
	if out.Session.Intent != statex.IntentConfirming || out.Session.Tone != statex.ToneFriendly {
		t.Fatalf("session classification = %q/%q", out.Session.Intent, out.Session.Tone)
	}
	if got := out.Session.Slot(statex.SlotMeetingTime); got.Status != statex.SlotValid || !got.Time.Equal(at) {
		t.Fatalf("slot not merged: %+v", got)
	}
	if len(cls.gotTail) != historyTailSize {
		t.Fatalf("classifier tail length = %d, want %d", len(cls.gotTail), historyTailSize)
	}

	last := out.Session.History[len(out.Session.History)-1]
	if last.Role != statex.RoleUser || last.Text != "tomorrow at 2pm works" {
		t.Fatalf("user turn not appended: %+v", last)
	}
}

func TestClassifyAndExtractDegradesOnFailure(t *testing.T) {
	t.Parallel()

	in := classifyTurnState(t)
	in.Session.Intent = statex.IntentInterested
	in.Session.Tone = statex.ToneFriendly

	cls := &stubClassifier{err: errors.New("model timeout")}
	ext := &stubExtractor{slots: map[string]statex.SlotValue{
		statex.SlotMeetingTime: {Status: statex.SlotAmbiguous, Raw: "next week"},
	}}

	out, err := ClassifyAndExtract(context.Background(), in, cls, ext)
	if err != nil {
		t.Fatalf("degraded turn must not fail, got %v", err)
	}
	if !out.Degraded {
		t.Fatal("turn should be marked degraded")
	}
	// Previous turn's classification carries over.
	if out.Classification.Intent != statex.IntentInterested || out.Classification.Tone != statex.ToneFriendly {
		t.Fatalf("degraded classification = %+v", out.Classification)
	}
	// Extraction still lands even when classification failed.
	if got := out.Session.Slot(statex.SlotMeetingTime); got.Status != statex.SlotAmbiguous {
		t.Fatalf("slot not merged on degraded turn: %+v", got)
	}
}
