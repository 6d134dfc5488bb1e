package invoke

import "testing"

func TestClassifyOutput(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{
			name:   "unified diff",
			stdout: "--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n-old\n+new\n",
			want:   "diff",
		},
		{
			name:   "fenced code block",
			stdout: "Here you go:\n```go\nfunc main() {}\n```\n",
			want:   "code",
		},
		{
			name:   "single fence is not code",
			stdout: "Use ``` to open a block.",
			want:   "explanation",
		},
		{
			name:   "keyword file",
			stdout: "File: internal/api/server.go needs a new route.",
			want:   "code",
		},
		{
			name:   "keyword def",
			stdout: "Add def handler(request): to views.",
			want:   "code",
		},
		{
			name:   "keyword import",
			stdout: "You should import the sync package first.",
			want:   "code",
		},
		{
			name:   "plain prose",
			stdout: "The service reads configuration at startup and caches results in memory.",
			want:   "explanation",
		},
		{
			name:   "diff markers win over keywords",
			stdout: "--- a/x.py\n+++ b/x.py\n-def old():\n+def new():\n",
			want:   "diff",
		},
		{
			name:   "empty output",
			stdout: "",
			want:   "explanation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyOutput(tt.stdout, "diff"); got != tt.want {
				t.Errorf("ClassifyOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}
