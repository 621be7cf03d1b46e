package insight

import (
	"strings"
	"testing"

	"github.com/tbourn/vibe-compass/internal/domain"
)

func TestGenerate_AllPairsDistinctAndLong(t *testing.T) {
	seen := make(map[string]string)
	for _, pain := range domain.PainPoints {
		for _, tm := range domain.TimeSpents {
			got := Generate(pain, tm)
			if len(got) < 50 {
				t.Fatalf("Generate(%s, %s) too short: %q", pain, tm, got)
			}
			if got == Fallback {
				t.Fatalf("Generate(%s, %s) returned fallback", pain, tm)
			}
			key := pain + "/" + tm
			if prev, ok := seen[got]; ok {
				t.Fatalf("Generate(%s) duplicates output of %s", key, prev)
			}
			seen[got] = key
		}
	}
	if len(seen) != 15 {
		t.Fatalf("expected 15 distinct outputs, got %d", len(seen))
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(domain.PainData, domain.TimeHigh)
	for i := 0; i < 10; i++ {
		if b := Generate(domain.PainData, domain.TimeHigh); b != a {
			t.Fatalf("non-deterministic output:\n%q\n%q", a, b)
		}
	}
}

func TestGenerate_Fallback(t *testing.T) {
	tests := []struct{ pain, time string }{
		{"", domain.TimeLow},
		{domain.PainData, ""},
		{"pain_unknown", "time_forever"},
	}
	for _, tt := range tests {
		if got := Generate(tt.pain, tt.time); got != Fallback {
			t.Fatalf("Generate(%q, %q) = %q; want fallback", tt.pain, tt.time, got)
		}
	}
	if len(Fallback) < 50 {
		t.Fatalf("fallback too short")
	}
}

func TestGenerate_MentionsTimeScale(t *testing.T) {
	if got := Generate(domain.PainCopying, domain.TimeMedium); !strings.Contains(got, "5 to 10 hours") {
		t.Fatalf("expected weekly estimate in %q", got)
	}
}
