package message

import (
	"testing"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "Hello, world!")

	if msg.Role != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, msg.Role)
	}

	if msg.Content != "Hello, world!" {
		t.Errorf("Expected content 'Hello, world!', got '%s'", msg.Content)
	}

	if msg.ID == "" {
		t.Error("Expected non-empty ID")
	}

	if msg.CreatedAt.IsZero() {
		t.Error("Expected non-zero created time")
	}
}

func TestAppendText(t *testing.T) {
	msg := NewMessage(RoleAssistant, "")
	msg.AppendText("ls ")
	msg.AppendText("")
	msg.AppendText("-la")

	if msg.Text() != "ls -la" {
		t.Errorf("Expected accumulated text 'ls -la', got '%s'", msg.Text())
	}

	var nilMsg *Message
	nilMsg.AppendText("ignored")
	if nilMsg.Text() != "" {
		t.Error("Expected empty text for nil message")
	}
}

func TestNewDelta(t *testing.T) {
	delta := NewDelta("chunk")
	if delta.Completed {
		t.Error("Expected delta to be incomplete")
	}
	if delta.Role != RoleAssistant {
		t.Errorf("Expected role %s, got %s", RoleAssistant, delta.Role)
	}
}

func TestCloneIsDeep(t *testing.T) {
	msg := NewMessage(RoleUser, "hi")
	msg.Metadata["k"] = "v"

	cloned := Clone(msg)
	cloned.Metadata["k"] = "changed"
	cloned.Content = "bye"

	if msg.Metadata["k"] != "v" {
		t.Error("Clone shares metadata with original")
	}
	if msg.Content != "hi" {
		t.Error("Clone shares content with original")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) should be nil")
	}
}
