package timeparsing

import (
	"testing"
	"time"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"+6h", time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC), false},
		{"-1d", time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC), false},
		{"2w", time.Date(2025, 6, 29, 12, 0, 0, 0, time.UTC), false},
		{"+3m", time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC), false},
		{"-1y", time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"6h+", time.Time{}, true},
		{"++1d", time.Time{}, true},
		{"1x", time.Time{}, true},
		{"+ 1d", time.Time{}, true},
		{"2025-01-01", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCompactDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseCompactDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCompactDurationMonthOverflow(t *testing.T) {
	// AddDate normalizes Jan 31 + 1 month to March 3.
	now := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	got, err := ParseCompactDuration("+1m", now)
	if err != nil {
		t.Fatal(err)
	}
	if got.Month() != time.March || got.Day() != 3 {
		t.Errorf("got %v, want March 3", got)
	}
}

func TestParseCompactDurationKeepsZone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	got, err := ParseCompactDuration("+1d", time.Date(2025, 6, 15, 12, 0, 0, 0, loc))
	if err != nil {
		t.Fatal(err)
	}
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
}

func TestParseAbsolute(t *testing.T) {
	loc := time.FixedZone("test", -3*3600)
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-02-01", time.Date(2025, 2, 1, 0, 0, 0, 0, loc)},
		{"2025-02-01 09:30", time.Date(2025, 2, 1, 9, 30, 0, 0, loc)},
		{"2025-03-15T14:30:00Z", time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseAbsolute(tt.input, loc)
		if err != nil {
			t.Errorf("ParseAbsolute(%q): %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseAbsolute(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := ParseAbsolute("02/01/2025", loc); err == nil {
		t.Error("expected error for unsupported layout")
	}
}
