package compaction

import (
	"reflect"
	"testing"

	"github.com/logpack/logpack/types"
)

func msg(role types.Role, content string) *types.Message {
	return &types.Message{Role: role, Content: content}
}

func TestDetector_AssistantRetryDropped(t *testing.T) {
	messages := []*types.Message{
		msg(types.RoleAssistant, "ok"),
		msg(types.RoleAssistant, "ok"),
	}

	got := NewDetector(3).Mark(messages)
	want := []bool{false, true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Mark() = %v, want %v", got, want)
	}
}

func TestDetector_UserRepetitionNeverDropped(t *testing.T) {
	messages := []*types.Message{
		msg(types.RoleUser, "hi"),
		msg(types.RoleUser, "hi"),
		msg(types.RoleUser, "hi"),
	}

	for i, drop := range NewDetector(3).Mark(messages) {
		if drop {
			t.Errorf("user message at %d marked for dropping", i)
		}
	}
}

func TestDetector_ToolResultEchoDropped(t *testing.T) {
	messages := []*types.Message{
		msg(types.RoleToolResult, "exit 0"),
		msg(types.RoleToolResult, "exit 0"),
	}

	got := NewDetector(3).Mark(messages)
	if !got[1] {
		t.Error("repeated tool-result echo not dropped")
	}
}

func TestDetector_WindowBoundsLookBack(t *testing.T) {
	// With window 1 the first "a" has fallen out of the window by the
	// time the repeat arrives; a far-apart repetition is meaningful.
	messages := []*types.Message{
		msg(types.RoleAssistant, "a"),
		msg(types.RoleSystem, "b"),
		msg(types.RoleAssistant, "a"),
	}

	got := NewDetector(1).Mark(messages)
	want := []bool{false, false, false}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("window=1: Mark() = %v, want %v", got, want)
	}

	got = NewDetector(2).Mark(messages)
	want = []bool{false, false, true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("window=2: Mark() = %v, want %v", got, want)
	}
}

func TestDetector_WindowCountsRetainedOnly(t *testing.T) {
	// Dropped duplicates do not occupy window slots: the retained "a"
	// stays in a window of 1 across any number of dropped repeats.
	messages := []*types.Message{
		msg(types.RoleAssistant, "a"),
		msg(types.RoleAssistant, "a"),
		msg(types.RoleAssistant, "a"),
	}

	got := NewDetector(1).Mark(messages)
	want := []bool{false, true, true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Mark() = %v, want %v", got, want)
	}
}

func TestDetector_RoleMismatchIsNotDuplicate(t *testing.T) {
	messages := []*types.Message{
		msg(types.RoleUser, "ok"),
		msg(types.RoleAssistant, "ok"),
	}

	got := NewDetector(3).Mark(messages)
	if got[1] {
		t.Error("assistant message dropped against user message with same content")
	}
}

func TestDetector_EmptyAndSingle(t *testing.T) {
	if got := NewDetector(3).Mark(nil); len(got) != 0 {
		t.Errorf("Mark(nil) = %v, want empty", got)
	}

	got := NewDetector(3).Mark([]*types.Message{msg(types.RoleAssistant, "x")})
	if got[0] {
		t.Error("single message marked for dropping")
	}
}
