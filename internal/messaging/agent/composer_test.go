package agent

import "testing"

func TestParseReplyResultPlain(t *testing.T) {
	result, err := parseReplyResult(`{"reply": "Sure, how about Saturday?", "appointmentIntent": true}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.Reply != "Sure, how about Saturday?" {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if !result.AppointmentIntent {
		t.Fatal("expected appointment intent")
	}
}

func TestParseReplyResultCodeFence(t *testing.T) {
	result, err := parseReplyResult("```json\n{\"reply\": \"Happy to help!\", \"appointmentIntent\": false}\n```")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.Reply != "Happy to help!" {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
}

func TestParseReplyResultWrappedInProse(t *testing.T) {
	result, err := parseReplyResult(`Here is the reply: {"reply": "Got it, thanks!", "appointmentIntent": false} Hope that works.`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.Reply != "Got it, thanks!" {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
}

func TestParseReplyResultEmptyReply(t *testing.T) {
	if _, err := parseReplyResult(`{"reply": "  ", "appointmentIntent": false}`); err == nil {
		t.Fatal("expected error for empty reply")
	}
}

func TestParseReplyResultGarbage(t *testing.T) {
	if _, err := parseReplyResult("sorry, I cannot help with that"); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
}
