package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_Stages(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"stages"}, &stdout, &stderr); code != 0 {
		t.Fatalf("unexpected exit code %d: %s", code, stderr.String())
	}
	want := "load\npositions\nconsolidate\nnormalize\nscore\nexport\n"
	if stdout.String() != want {
		t.Fatalf("unexpected stages output: %q", stdout.String())
	}
}

func TestRun_Usage(t *testing.T) {
	cases := []struct {
		name string
		args []string
		code int
	}{
		{name: "no args", args: nil, code: 2},
		{name: "unknown command", args: []string{"deploy"}, code: 2},
		{name: "unknown stage", args: []string{"run", "-from", "publish"}, code: 2},
		{name: "bad flag", args: []string{"run", "-fast"}, code: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tc.args, &stdout, &stderr); code != tc.code {
				t.Fatalf("expected exit code %d, got %d", tc.code, code)
			}
			if stderr.Len() == 0 {
				t.Fatalf("expected diagnostics on stderr")
			}
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("APP_ENV", "nowhere")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"run"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "load config") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}
