package verdict

import (
	"errors"
	"testing"
	"time"
)

func TestExtractSemver(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"v7.21.0-ee", "7.21.0"},
		{"4.4.1_8366", "4.4.1"},
		{"2.3.1", "2.3.1"},
		{"Camunda Platform 7.20.3 (enterprise)", "7.20.3"},
	}
	for _, tt := range tests {
		got, err := ExtractSemver(tt.in)
		if err != nil {
			t.Fatalf("ExtractSemver(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExtractSemver(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractSemver_NoVersion(t *testing.T) {
	_, err := ExtractSemver("no version here")
	if !errors.Is(err, ErrNotSemver) {
		t.Errorf("err = %v; want ErrNotSemver", err)
	}
}

func TestMajorMinorPatch(t *testing.T) {
	if got, _ := Major("7.21.0"); got != 7 {
		t.Errorf("Major = %d; want 7", got)
	}
	if got, _ := Minor("7.21.0"); got != 21 {
		t.Errorf("Minor = %d; want 21", got)
	}
	if got, _ := Patch("7.21.0"); got != 0 {
		t.Errorf("Patch = %d; want 0", got)
	}
	if got, _ := Minor("10.2.9-h1"); got != 2 {
		t.Errorf("Minor(10.2.9-h1) = %d; want 2", got)
	}
}

// TestCompareVersions covers every branch of the first-differing-component
// classification.
func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    Status
	}{
		{"equal", "1.2.3", "1.2.3", Status{"Versions are the same", ColorGreen, VerdictOK}},
		{"patch behind", "7.21.0", "7.21.5", Status{"Patch versions are different", ColorOrange, VerdictReview}},
		{"minor behind", "7.20.9", "7.21.0", Status{"Minor versions are different", ColorOrange, VerdictReview}},
		{"major behind", "1.9.9", "2.0.0", Status{"Major versions are different", ColorRed, VerdictAppUpgrade}},
		{"major ahead", "3.0.0", "2.9.9", Status{"Current major version is higher than the latest major version, something went wrong!", ColorRed, VerdictError}},
		{"minor ahead", "2.5.0", "2.4.9", Status{"Current minor version is higher than the latest minor version, something went wrong!", ColorRed, VerdictError}},
		{"patch ahead", "2.4.3", "2.4.1", Status{"Current patch version is higher than the latest patch version, something went wrong!", ColorRed, VerdictError}},
		{"numeric not lexical", "2.9.0", "2.10.0", Status{"Minor versions are different", ColorOrange, VerdictReview}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompareVersions(tt.current, tt.latest)
			if err != nil {
				t.Fatalf("CompareVersions error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CompareVersions(%q, %q) = %+v; want %+v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

// TestCompareVersions_RejectsNonSemver verifies that prefixed, suffixed and
// leading-zero versions are refused rather than guessed at.
func TestCompareVersions_RejectsNonSemver(t *testing.T) {
	for _, pair := range [][2]string{
		{"v1.2.3", "1.2.3"},
		{"1.2.3", "1.2"},
		{"1.02.3", "1.2.3"},
		{"1.2.3-rc1", "1.2.3"},
	} {
		if _, err := CompareVersions(pair[0], pair[1]); !errors.Is(err, ErrNotSemver) {
			t.Errorf("CompareVersions(%q, %q) err = %v; want ErrNotSemver", pair[0], pair[1], err)
		}
	}
}

func TestSoftwareVerdict(t *testing.T) {
	tests := []struct {
		name      string
		installed string
		desired   string
		latest    string
		wantColor Color
		wantVerd  string
	}{
		{"two majors behind latest", "9.1.0", "10.1.0", "11.1.2", ColorRed, VerdictUpgrade},
		{"two majors behind desired", "9.1.0", "11.1.0", "11.0.0", ColorRed, VerdictUpgrade},
		{"minor behind desired", "11.0.3", "11.1.0", "11.1.2", ColorOrange, VerdictReview},
		{"on desired", "11.1.2", "11.1.0", "11.1.2", ColorGreen, VerdictOK},
		{"hot fix build on desired line", "10.2.9-h1", "10.2.9", "11.0.0", ColorGreen, VerdictOK},
		{"one major behind", "10.1.9", "11.1.0", "11.1.2", ColorOrange, VerdictReview},
		{"ahead of desired", "11.2.0", "10.2.0", "11.2.0", ColorGreen, VerdictOK},
		{"installed unknown", "", "11.1.0", "11.1.2", ColorRed, VerdictUpgrade},
		{"desired unknown and two majors behind latest", "10.2.9", "latest", "12.1.0", ColorRed, VerdictUpgrade},
		{"desired unknown on latest major", "10.2.9", "latest", "10.2.9", ColorRed, VerdictUpgrade},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SoftwareVerdict(tt.installed, tt.desired, tt.latest)
			if got.ColorCode != tt.wantColor || got.Verdict != tt.wantVerd {
				t.Errorf("SoftwareVerdict(%q, %q, %q) = %s/%s; want %s/%s",
					tt.installed, tt.desired, tt.latest, got.ColorCode, got.Verdict, tt.wantColor, tt.wantVerd)
			}
		})
	}
}

func TestAKSVerdict(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		upgrades  []Upgrade
		wantAvail string
		wantColor Color
		wantVerd  string
	}{
		{"no upgrades", "1.29.2", nil, NoUpdatesAvailable, ColorGreen, "No update required"},
		{"preview only", "1.29.2", []Upgrade{{"1.30.0", true}}, OnlyPreviewAvailable, ColorOrange, "Wait for general availability"},
		{"patch only", "1.28.5", []Upgrade{{"1.28.9", false}}, "1.28.9", ColorOrange, "Patch version update only"},
		{
			"minor available picks highest GA",
			"1.28.5",
			[]Upgrade{{"1.29.2", false}, {"1.28.9", false}, {"1.30.0", true}},
			"1.29.2", ColorRed, "Update",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avail, got := AKSVerdict(tt.current, tt.upgrades)
			if avail != tt.wantAvail {
				t.Errorf("available = %q; want %q", avail, tt.wantAvail)
			}
			if got.ColorCode != tt.wantColor || got.Verdict != tt.wantVerd {
				t.Errorf("status = %s/%s; want %s/%s", got.ColorCode, got.Verdict, tt.wantColor, tt.wantVerd)
			}
		})
	}
}

func TestExpiryVerdict(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	if got := ExpiryVerdict(now.AddDate(0, 0, -1), now, 30); got.ColorCode != ColorRed {
		t.Errorf("expired page colour = %s; want red", got.ColorCode)
	}
	if got := ExpiryVerdict(now.AddDate(0, 0, 10), now, 30); got.ColorCode != ColorOrange {
		t.Errorf("expiring page colour = %s; want orange", got.ColorCode)
	}
	if got := ExpiryVerdict(now.AddDate(0, 2, 0), now, 30); got.ColorCode != ColorGreen {
		t.Errorf("fresh page colour = %s; want green", got.ColorCode)
	}
}

func TestAgeVerdict(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	if got := AgeVerdict(now.AddDate(0, 0, -2), now, 7, 30); got.Verdict != VerdictOK {
		t.Errorf("2 day old PR verdict = %s; want ok", got.Verdict)
	}
	if got := AgeVerdict(now.AddDate(0, 0, -7), now, 7, 30); got.Verdict != VerdictReview {
		t.Errorf("7 day old PR verdict = %s; want review", got.Verdict)
	}
	if got := AgeVerdict(now.AddDate(0, 0, -45), now, 7, 30); got.Verdict != VerdictUpgrade {
		t.Errorf("45 day old PR verdict = %s; want upgrade", got.Verdict)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 2 {
		t.Errorf("DaysBetween = %d; want 2", got)
	}
	if got := DaysBetween(b, a); got != -2 {
		t.Errorf("DaysBetween reversed = %d; want -2", got)
	}
}
