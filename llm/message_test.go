package llm

import "testing"

func TestConversation_LastUserText(t *testing.T) {
	tests := []struct {
		name string
		conv Conversation
		want string
	}{
		{"single user turn", NewConversation("hello"), "hello"},
		{"system plus user", NewConversation("hello").WithSystem("be safe"), "hello"},
		{
			"multiple user turns",
			Conversation{Turns: []Turn{
				{Role: RoleUser, Message: NewMessage("first")},
				{Role: RoleAssistant, Message: NewMessage("reply")},
				{Role: RoleUser, Message: NewMessage("second")},
			}},
			"second",
		},
		{"empty conversation", Conversation{}, ""},
		{
			"system only",
			Conversation{Turns: []Turn{{Role: RoleSystem, Message: NewMessage("sys")}}},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conv.LastUserText(); got != tt.want {
				t.Errorf("LastUserText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConversation_SystemText(t *testing.T) {
	conv := NewConversation("hi").WithSystem("rule one")
	if got := conv.SystemText(); got != "rule one" {
		t.Errorf("SystemText() = %q, want %q", got, "rule one")
	}
	if got := NewConversation("hi").SystemText(); got != "" {
		t.Errorf("SystemText() on plain conversation = %q, want empty", got)
	}
}

func TestConversation_NonSystemTurns(t *testing.T) {
	conv := NewConversation("hi").WithSystem("sys")
	turns := conv.NonSystemTurns()
	if len(turns) != 1 {
		t.Fatalf("NonSystemTurns() returned %d turns, want 1", len(turns))
	}
	if turns[0].Role != RoleUser {
		t.Errorf("NonSystemTurns()[0].Role = %v, want user", turns[0].Role)
	}
}

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleSystem, true},
		{RoleUser, true},
		{RoleAssistant, true},
		{Role("tool"), false},
		{Role(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.IsValid(); got != tt.want {
				t.Errorf("Role.IsValid(%q) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}
