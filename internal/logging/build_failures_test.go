// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"bytes"
	"strings"
	"testing"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/httperrors"
)

func TestParseBuildFailure(t *testing.T) {
	tests := []struct {
		msg  string
		want BuildFailureType
	}{
		{"go: github.com/x/y@v9.9.9: invalid version: unknown revision v9.9.9", BuildFailureModuleNotFound},
		{`Get "https://proxy.golang.org/...": dial tcp: lookup proxy.golang.org: no such host`, BuildFailureNetwork},
		{"verifying github.com/x/y@v1.0.0: checksum mismatch", BuildFailureChecksum},
		{`exec: "go": executable file not found in $PATH`, BuildFailureToolchain},
		{"./main.go:1:1: undefined: x", BuildFailureUnknown},
	}
	for _, tt := range tests {
		if got := ParseBuildFailure(tt.msg); got != tt.want {
			t.Errorf("ParseBuildFailure(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestPresent(t *testing.T) {
	var buf bytes.Buffer
	Present(&buf, errors.Wrap(errors.FetchError, "GET https://x/y.go?private_token=abc", errors.New(errors.FetchError, "404")))
	out := buf.String()
	if strings.Contains(out, "abc") {
		t.Errorf("Present() leaked token: %q", out)
	}
	if !strings.Contains(out, "goexec token set") {
		t.Errorf("Present() = %q, want token hint", out)
	}
}

func TestPresentStatusHint(t *testing.T) {
	var buf bytes.Buffer
	err := errors.Wrap(errors.FetchError, "fetch https://gitlab.com/a.go", &httperrors.StatusError{URL: "https://gitlab.com/a.go", Code: 503})
	Present(&buf, err)
	if !strings.Contains(buf.String(), "gitlab.com had a server error") {
		t.Errorf("Present() = %q, want status hint", buf.String())
	}
}
