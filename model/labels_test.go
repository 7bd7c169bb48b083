package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseScheme(t *testing.T) {
	tests := []struct {
		in   string
		want Scheme
	}{
		{in: "reno", want: SchemeReno},
		{in: "CUBIC", want: SchemeCubic},
		{in: " bbr ", want: SchemeBBR},
		{in: "bbr2", want: SchemeBBR2},
		{in: "vegas", want: SchemeVegas},
		{in: "unknown", want: SchemeUnknown},
		{in: "westwood", want: SchemeUnknown},
		{in: "", want: SchemeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseScheme(tt.in); got != tt.want {
				t.Errorf("ParseScheme(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLookupScheme(t *testing.T) {
	if _, err := LookupScheme("westwood"); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("LookupScheme() error = %v, want ErrUnknownLabel", err)
	}
	got, err := LookupScheme("Reno")
	if err != nil || got != SchemeReno {
		t.Errorf("LookupScheme() = %v, %v, want reno", got, err)
	}
}

func TestScheme_String(t *testing.T) {
	for _, s := range Schemes() {
		if ParseScheme(s.String()) != s {
			t.Errorf("ParseScheme(%q) does not round trip", s)
		}
	}
	if got := Scheme(99).String(); got != "unknown" {
		t.Errorf("Scheme(99).String() = %q, want unknown", got)
	}
}

func TestScenario_MinRTT(t *testing.T) {
	tests := []struct {
		sc     Scenario
		want   time.Duration
		wantOK bool
	}{
		{sc: ScenarioSC0},
		{sc: ScenarioSC2},
		{sc: ScenarioSC3, want: 5 * time.Millisecond, wantOK: true},
		{sc: ScenarioSC4, want: 10 * time.Millisecond, wantOK: true},
		{sc: ScenarioSC5, want: 50 * time.Millisecond, wantOK: true},
		{sc: ScenarioSC6, want: 100 * time.Millisecond, wantOK: true},
		{sc: ScenarioSC7, want: 150 * time.Millisecond, wantOK: true},
		{sc: ScenarioUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.sc.String(), func(t *testing.T) {
			got, ok := tt.sc.MinRTT()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("MinRTT() = %v, %t, want %v, %t", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseScenario(t *testing.T) {
	if got := ParseScenario("SC1"); got != ScenarioSC1 {
		t.Errorf("ParseScenario(SC1) = %v", got)
	}
	if got := ParseScenario("sc8"); got != ScenarioUnknown {
		t.Errorf("ParseScenario(sc8) = %v, want unknown", got)
	}
	if _, err := LookupScenario("sc8"); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("LookupScenario() error = %v, want ErrUnknownLabel", err)
	}
	all := append(InterferenceScenarios(), RTTScenarios()...)
	if len(all) != 8 {
		t.Fatalf("expected 8 known scenarios, got %d", len(all))
	}
	for _, sc := range all {
		if ParseScenario(sc.String()) != sc {
			t.Errorf("ParseScenario(%q) does not round trip", sc)
		}
	}
}

func TestLabels_JSON(t *testing.T) {
	type row struct {
		Scheme   Scheme
		Scenario Scenario
	}
	b, err := json.Marshal(row{SchemeBBR2, ScenarioSC6})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"Scheme":"bbr2","Scenario":"sc6"}` {
		t.Errorf("json.Marshal() = %s", b)
	}
	var got row
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Scheme != SchemeBBR2 || got.Scenario != ScenarioSC6 {
		t.Errorf("json.Unmarshal() = %+v", got)
	}
}
