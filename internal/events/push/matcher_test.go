package push

import "testing"

func TestParseMatcher_Exact(t *testing.T) {
	m := ParseMatcher("abc123")
	if !m.Matches("abc123") {
		t.Error("Exact should match same value")
	}
	if m.Matches("xyz") {
		t.Error("Exact should not match different value")
	}
	if m.Matches("") {
		t.Error("Exact should not match empty string")
	}
	if m.String() != "abc123" {
		t.Errorf("Exact String() = %q, want %q", m.String(), "abc123")
	}
}

func TestParseMatcher_Any(t *testing.T) {
	m := ParseMatcher("*")
	if !m.Matches("anything") {
		t.Error("Any should match any value")
	}
	if !m.Matches("") {
		t.Error("Any should match empty string")
	}
	if m.String() != "*" {
		t.Errorf("Any String() = %q, want %q", m.String(), "*")
	}
}

func TestParseMatcher_OneOf(t *testing.T) {
	m := ParseMatcher("8|9")
	if !m.Matches("8") {
		t.Error("OneOf should match '8'")
	}
	if !m.Matches("9") {
		t.Error("OneOf should match '9'")
	}
	if m.Matches("10") {
		t.Error("OneOf should not match '10'")
	}
	if m.Matches("") {
		t.Error("OneOf should not match empty string")
	}
}

func TestParseMatcher_OneOfString(t *testing.T) {
	if got := ParseMatcher("8|9").String(); got != "8|9" {
		t.Errorf("String() = %q, want %q", got, "8|9")
	}
	if got := ParseMatcher("").String(); got != "(none)" {
		t.Errorf("String() = %q, want %q", got, "(none)")
	}
}

func TestParseMatcher_EmptyPipe(t *testing.T) {
	// Edge case: empty segments are skipped
	m := ParseMatcher("a||b")
	if !m.Matches("a") {
		t.Error("Should match 'a'")
	}
	if !m.Matches("b") {
		t.Error("Should match 'b'")
	}
	if m.Matches("") {
		t.Error("Should not match empty string (empty segments skipped)")
	}
}

func TestModuleFindUnitHandlers(t *testing.T) {
	m := NewModule()
	m.unitHandlers = []UnitChangedHandler{
		{UnitID: ParseMatcher("8"), State: ParseMatcher("*")},
		{UnitID: ParseMatcher("*"), State: ParseMatcher("off")},
	}

	if got := m.FindUnitHandlers(8, "on"); len(got) != 1 {
		t.Errorf("handlers for 8/on = %d, want 1", len(got))
	}
	if got := m.FindUnitHandlers(8, "off"); len(got) != 2 {
		t.Errorf("handlers for 8/off = %d, want 2", len(got))
	}
	if got := m.FindUnitHandlers(9, "on"); len(got) != 0 {
		t.Errorf("handlers for 9/on = %d, want 0", len(got))
	}
}

func TestModuleFindPeerAndConnectionHandlers(t *testing.T) {
	m := NewModule()
	m.peerHandlers = []PeerChangedHandler{
		{Online: ParseMatcher("false")},
		{Online: ParseMatcher("*")},
	}
	m.connectionHandlers = []ConnectionHandler{
		{State: ParseMatcher("disconnected")},
	}

	if got := m.FindPeerHandlers(false); len(got) != 2 {
		t.Errorf("peer handlers for offline = %d, want 2", len(got))
	}
	if got := m.FindPeerHandlers(true); len(got) != 1 {
		t.Errorf("peer handlers for online = %d, want 1", len(got))
	}
	if got := m.FindConnectionHandlers("connected"); len(got) != 0 {
		t.Errorf("connection handlers for connected = %d, want 0", len(got))
	}
	if got := m.FindConnectionHandlers("disconnected"); len(got) != 1 {
		t.Errorf("connection handlers for disconnected = %d, want 1", len(got))
	}
}
