package main

import "testing"

func TestMentionPatternStripsUserMentions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"<@U12345678> hello", " hello"},
		{"hey <@U0AB99> and <@W777>", "hey  and "},
		{"no mentions here", "no mentions here"},
		{"<@lowercase> stays", "<@lowercase> stays"},
	}
	for _, tt := range tests {
		if got := mentionPattern.ReplaceAllString(tt.in, ""); got != tt.want {
			t.Fatalf("strip(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSixthArg(t *testing.T) {
	t.Parallel()

	if got := sixthArg([]string{"a", "b", "c", "d", "e"}); got != "" {
		t.Fatalf("sixthArg(5 args) = %q, want empty", got)
	}
	if got := sixthArg([]string{"a", "b", "c", "d", "e", "f"}); got != "f" {
		t.Fatalf("sixthArg(6 args) = %q, want f", got)
	}
}
