package exec

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		wantStdout string
		wantCode   int
	}{
		{
			name:       "echo",
			cfg:        Config{Command: "echo", Args: []string{"hello", "world"}},
			wantStdout: "hello world\n",
		},
		{
			name:     "non-zero exit",
			cfg:      Config{Command: "sh", Args: []string{"-c", "exit 3"}},
			wantCode: 3,
		},
		{
			name:       "stdin",
			cfg:        Config{Command: "cat", Stdin: []byte("piped")},
			wantStdout: "piped",
		},
		{
			name:       "env",
			cfg:        Config{Command: "sh", Args: []string{"-c", "echo $STINGBOT_TEST"}, Env: []string{"STINGBOT_TEST=42"}},
			wantStdout: "42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := string(result.Stdout); got != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", got, tt.wantStdout)
			}
			if result.ExitCode != tt.wantCode {
				t.Errorf("exit code = %d, want %d", result.ExitCode, tt.wantCode)
			}
		})
	}
}

func TestRun_WorkDir(t *testing.T) {
	dir := t.TempDir()
	result, err := Run(context.Background(), Config{Command: "pwd", WorkDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := strings.TrimSpace(string(result.Stdout))
	want, _ := os.Readlink(dir)
	if got != dir && got != want {
		t.Errorf("pwd = %q, want %q", got, dir)
	}
}

func TestRun_Timeout(t *testing.T) {
	_, err := Run(context.Background(), Config{Command: "sleep", Args: []string{"5"}, Timeout: 50 * time.Millisecond})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, Config{Command: "sleep", Args: []string{"5"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
}

func TestRun_Errors(t *testing.T) {
	if _, err := Run(context.Background(), Config{}); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := Run(context.Background(), Config{Command: "definitely-not-a-real-binary-xyz"}); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestResult_Output(t *testing.T) {
	r := &Result{Stdout: []byte("80/tcp open\n"), Stderr: []byte("warning\n")}
	if got, want := r.Output(), "80/tcp open\nwarning"; got != want {
		t.Errorf("Output() = %q, want %q", got, want)
	}
	if got := (&Result{Stderr: []byte("only err")}).Output(); got != "only err" {
		t.Errorf("Output() = %q", got)
	}
}
