package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleCommand(t *testing.T) {
	cmd := newConsoleCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader("1\nWrite report\n\n\n\n2\n0\ny\n"))
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("console command failed: %v", err)
	}
	if !strings.Contains(out.String(), "Write report") {
		t.Errorf("expected created task in output, got:\n%s", out.String())
	}
}

func TestServeCommand_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
		want string
	}{
		{
			name: "unknown store flag",
			args: []string{"--store", "mongo"},
			want: "unknown store driver",
		},
		{
			name: "unsupported algorithm",
			env:  map[string]string{"JWT_ALGORITHM": "RS256"},
			want: "unsupported JWT algorithm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cmd := newServeCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			err := cmd.Execute()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want to contain %q", err, tt.want)
			}
		})
	}
}
