package contract

import "testing"

func TestParseRiskLevel(t *testing.T) {
	cases := []struct {
		in   string
		want RiskLevel
		ok   bool
	}{
		{"Low", RiskLow, true},
		{"low", RiskLow, true},
		{"MEDIUM", RiskMedium, true},
		{"High", RiskHigh, true},
		{"Unknown", "", false},
		{"Catastrophic", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseRiskLevel(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseRiskLevel(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRiskLevelValid(t *testing.T) {
	for _, l := range []RiskLevel{RiskLow, RiskMedium, RiskHigh} {
		if !l.Valid() {
			t.Errorf("expected %s valid", l)
		}
	}
	if RiskUnknown.Valid() {
		t.Error("Unknown must not be a valid scorable level")
	}
}

func TestHighestRisk(t *testing.T) {
	report := RiskReport{Verdicts: []RiskVerdict{
		{RiskLevel: RiskLow},
		{RiskLevel: RiskHigh},
		{RiskLevel: RiskMedium},
	}}
	if got := report.HighestRisk(); got != RiskHigh {
		t.Fatalf("expected High, got %s", got)
	}

	report.Verdicts = append(report.Verdicts, RiskVerdict{RiskLevel: RiskUnknown})
	if got := report.HighestRisk(); got != RiskUnknown {
		t.Fatalf("Unknown must rank above High, got %s", got)
	}

	empty := RiskReport{}
	if got := empty.HighestRisk(); got != RiskLow {
		t.Fatalf("empty report defaults to Low, got %s", got)
	}
}
