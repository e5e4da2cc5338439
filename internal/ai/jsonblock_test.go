package ai

import (
	"errors"
	"testing"
)

func TestJSONBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		expect  string
		wantErr bool
	}{
		{
			name:   "fenced block wins",
			raw:    "Sure, here you go:\n```json\n{\"title\": \"Data Analyst\"}\n```\nLet me know!",
			expect: "{\"title\": \"Data Analyst\"}",
		},
		{
			name:   "bare object accepted",
			raw:    "  {\"title\": \"Data Analyst\"}  ",
			expect: "{\"title\": \"Data Analyst\"}",
		},
		{
			name:   "double-escaped newlines undone",
			raw:    `{"summary": "line one\nline two"}`,
			expect: "{\"summary\": \"line one\nline two\"}",
		},
		{
			name:    "prose reply rejected",
			raw:     "I could not find a job posting on that page.",
			wantErr: true,
		},
		{
			name:    "trailing prose without fence rejected",
			raw:     "{\"title\": \"x\"} hope that helps",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := JSONBlock(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrNotJSON) {
					t.Fatalf("expected ErrNotJSON, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
