package totp

import (
	"errors"
	"testing"
	"time"
)

var (
	rfcSecretSHA1   = []byte("12345678901234567890")
	rfcSecretSHA256 = []byte("12345678901234567890123456789012")
	rfcSecretSHA512 = []byte("1234567890123456789012345678901234567890123456789012345678901234")
)

func TestGenerate_RFC6238Vectors(t *testing.T) {
	tests := []struct {
		unix   int64
		algo   Algorithm
		secret []byte
		want   string
	}{
		{59, AlgorithmSHA1, rfcSecretSHA1, "94287082"},
		{59, AlgorithmSHA256, rfcSecretSHA256, "46119246"},
		{59, AlgorithmSHA512, rfcSecretSHA512, "90693936"},
		{1111111109, AlgorithmSHA1, rfcSecretSHA1, "07081804"},
		{1111111109, AlgorithmSHA256, rfcSecretSHA256, "68084774"},
		{1111111109, AlgorithmSHA512, rfcSecretSHA512, "25091201"},
		{1234567890, AlgorithmSHA1, rfcSecretSHA1, "89005924"},
		{2000000000, AlgorithmSHA1, rfcSecretSHA1, "69279037"},
		{2000000000, AlgorithmSHA512, rfcSecretSHA512, "38618901"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algo), func(t *testing.T) {
			g, err := New(Params{Digits: 8, Period: 30 * time.Second, Algorithm: tt.algo})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			w, err := g.Generate(tt.secret, time.Unix(tt.unix, 0))
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if w.Code != tt.want {
				t.Errorf("at %d: expected %s, got %s", tt.unix, tt.want, w.Code)
			}
			wantStart := tt.unix / 30 * 30
			if w.Start.Unix() != wantStart {
				t.Errorf("expected window start %d, got %d", wantStart, w.Start.Unix())
			}
		})
	}
}

func TestGenerate_DefaultsUseFifteenSecondWindows(t *testing.T) {
	g := Default()

	// With a 15 second period, t in [0,15) is HOTP counter 0 and [15,30) is counter 1.
	hotpVectors := map[int64]string{
		0:  "755224",
		14: "755224",
		15: "287082",
		29: "287082",
		30: "359152",
	}
	for unix, want := range hotpVectors {
		w, err := g.Generate(rfcSecretSHA1, time.Unix(unix, 0))
		if err != nil {
			t.Fatalf("Generate(%d): %v", unix, err)
		}
		if w.Code != want {
			t.Errorf("at %d: expected %s, got %s", unix, want, w.Code)
		}
	}
}

func TestGenerate_WindowStability(t *testing.T) {
	g := Default()
	base := time.Unix(1700000010, 0) // 1700000010 is a multiple of 15

	first, err := g.Generate(rfcSecretSHA1, base)
	if err != nil {
		t.Fatal(err)
	}
	for offset := time.Duration(0); offset < 15*time.Second; offset += 500 * time.Millisecond {
		w, err := g.Generate(rfcSecretSHA1, base.Add(offset))
		if err != nil {
			t.Fatal(err)
		}
		if w.Code != first.Code || !w.Start.Equal(first.Start) {
			t.Fatalf("code changed inside window at +%v: %v vs %v", offset, w, first)
		}
	}

	next, err := g.Generate(rfcSecretSHA1, base.Add(15*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if !next.Start.After(first.Start) {
		t.Errorf("expected next window to start after %v, got %v", first.Start, next.Start)
	}
}

func TestGenerate_Errors(t *testing.T) {
	g := Default()

	if _, err := g.Generate(nil, time.Now()); !errors.Is(err, ErrEmptySecret) || !errors.Is(err, ErrGenerate) {
		t.Errorf("expected ErrEmptySecret wrapping ErrGenerate, got %v", err)
	}
	if _, err := g.Generate(rfcSecretSHA1, time.Unix(-1, 0)); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("expected ErrInvalidTime, got %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", Params{}, false},
		{"seven digits", Params{Digits: 7}, false},
		{"sha512", Params{Algorithm: AlgorithmSHA512}, false},
		{"five digits", Params{Digits: 5}, true},
		{"nine digits", Params{Digits: 9}, true},
		{"negative period", Params{Period: -time.Second}, true},
		{"fractional period", Params{Period: 1500 * time.Millisecond}, true},
		{"unknown algorithm", Params{Algorithm: "MD5"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.params)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParams) {
					t.Fatalf("expected ErrInvalidParams, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if g.Params().Digits == 0 || g.Params().Period == 0 || g.Params().Algorithm == "" {
				t.Errorf("defaults not applied: %+v", g.Params())
			}
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]Algorithm{
		"":        AlgorithmSHA1,
		"sha1":    AlgorithmSHA1,
		"Sha256":  AlgorithmSHA256,
		" SHA512": AlgorithmSHA512,
	} {
		got, err := ParseAlgorithm(in)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseAlgorithm(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseAlgorithm("md5"); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}
