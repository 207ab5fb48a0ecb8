package format

import (
	"testing"
	"time"
)

func TestFormatFolioNumber(t *testing.T) {
	at := time.Date(2025, time.March, 7, 10, 0, 0, 0, time.UTC)

	got, err := FormatFolioNumber(DefaultFolioNumberTemplate, at, 42)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if got != "FOL-202503-000042" {
		t.Fatalf("unexpected folio number: %s", got)
	}
}

func TestFormatFolioNumberTokens(t *testing.T) {
	at := time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC)

	cases := []struct {
		template string
		want     string
	}{
		{"{YY}{MM}{DD}-{SEQ}", "241231-7"},
		{"F{SEQ3}", "F007"},
		{"{YYYY}/{SEQ6}", "2024/000007"},
	}
	for _, tc := range cases {
		got, err := FormatFolioNumber(tc.template, at, 7)
		if err != nil {
			t.Fatalf("format %q: %v", tc.template, err)
		}
		if got != tc.want {
			t.Fatalf("format %q = %s, want %s", tc.template, got, tc.want)
		}
	}
}

func TestFormatFolioNumberRejects(t *testing.T) {
	at := time.Now().UTC()

	if _, err := FormatFolioNumber("", at, 1); err == nil {
		t.Fatal("expected error for empty template")
	}
	if _, err := FormatFolioNumber("FOL-{SEQ}", at, 0); err == nil {
		t.Fatal("expected error for non-positive sequence")
	}
	if _, err := FormatFolioNumber("FOL-{WAT}", at, 1); err == nil {
		t.Fatal("expected error for unresolved token")
	}
}
