package template

import "testing"

func TestCleanContent(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want string
	}{
		{name: "empty", s: "", want: ""},
		{name: "plain", s: "Hello {{firstName}}.", want: "Hello {{firstName}}."},
		{name: "emoji", s: "🚀 Ready to launch? 🎉", want: "Ready to launch?"},
		{name: "heading", s: "## Day 3\nKeep going", want: "Day 3\nKeep going"},
		{name: "bold", s: "This is **big** news", want: "This is big news"},
		{name: "bold underscores", s: "This is __big__ news", want: "This is big news"},
		{name: "italic", s: "Really *quite* good", want: "Really quite good"},
		{name: "code", s: "Run `make` now", want: "Run make now"},
		{name: "tokens preserved", s: "Hi {{first_name}}, see {{course_url}}", want: "Hi {{first_name}}, see {{course_url}}"},
		{name: "emphasis around token", s: "**{{firstName}}**, welcome", want: "{{firstName}}, welcome"},
		{name: "heading after token line", s: "{{a}}\n# Title", want: "{{a}}\nTitle"},
		{name: "crlf and blank lines", s: "one\r\n\r\n\r\n\r\ntwo", want: "one\n\ntwo"},
		{name: "spaces collapsed", s: "a   b \t c  ", want: "a b c"},
		{name: "multiplication kept", s: "2*3", want: "2*3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanContent(tt.s); got != tt.want {
				t.Errorf("CleanContent() = %q, want %q", got, tt.want)
			}
		})
	}
}
