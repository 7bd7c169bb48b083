package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownLabel is returned when a scheme or scenario label is not one of
// the recognized values.
var ErrUnknownLabel = errors.New("unknown label")

// Scheme is the congestion control algorithm under test.
type Scheme int

// The recognized congestion control schemes. SchemeUnknown is the fallback for
// any label outside of this set.
const (
	SchemeUnknown Scheme = iota
	SchemeReno
	SchemeCubic
	SchemeBBR
	SchemeBBR2
	SchemeVegas
)

var schemeNames = [...]string{
	SchemeUnknown: "unknown",
	SchemeReno:    "reno",
	SchemeCubic:   "cubic",
	SchemeBBR:     "bbr",
	SchemeBBR2:    "bbr2",
	SchemeVegas:   "vegas",
}

// Schemes lists every known scheme in reporting order.
func Schemes() []Scheme {
	return []Scheme{SchemeReno, SchemeCubic, SchemeBBR, SchemeBBR2, SchemeVegas}
}

// ParseScheme maps a label to a Scheme. Matching is case-insensitive.
// Unrecognized labels return SchemeUnknown.
func ParseScheme(s string) Scheme {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range schemeNames {
		if Scheme(i) != SchemeUnknown && name == s {
			return Scheme(i)
		}
	}
	return SchemeUnknown
}

// LookupScheme is like ParseScheme but returns ErrUnknownLabel instead of
// SchemeUnknown.
func LookupScheme(s string) (Scheme, error) {
	sc := ParseScheme(s)
	if sc == SchemeUnknown {
		return sc, fmt.Errorf("%w: scheme %q", ErrUnknownLabel, s)
	}
	return sc, nil
}

func (s Scheme) String() string {
	if s < 0 || int(s) >= len(schemeNames) {
		return schemeNames[SchemeUnknown]
	}
	return schemeNames[s]
}

// Kernel returns the name the Linux kernel uses for this algorithm in
// net.ipv4.tcp_congestion_control and TCP_CONGESTION.
func (s Scheme) Kernel() string {
	return s.String()
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (s Scheme) MarshalCSV() (string, error) {
	return s.String(), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (s *Scheme) UnmarshalCSV(v string) error {
	*s = ParseScheme(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Scheme) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scheme) UnmarshalText(b []byte) error {
	*s = ParseScheme(string(b))
	return nil
}

// Scenario is the network condition configuration under test.
type Scenario int

// The recognized scenarios. SC0-SC2 vary interference, SC3-SC7 sweep the
// end-to-end minimum RTT.
const (
	ScenarioUnknown Scenario = iota
	ScenarioSC0
	ScenarioSC1
	ScenarioSC2
	ScenarioSC3
	ScenarioSC4
	ScenarioSC5
	ScenarioSC6
	ScenarioSC7
)

type scenarioInfo struct {
	name        string
	description string
	minRTT      time.Duration
}

var scenarios = [...]scenarioInfo{
	ScenarioUnknown: {name: "unknown"},
	ScenarioSC0:     {name: "sc0", description: "no interference"},
	ScenarioSC1:     {name: "sc1", description: "low interference (2% loss)"},
	ScenarioSC2:     {name: "sc2", description: "strong interference (5% loss)"},
	ScenarioSC3:     {name: "sc3", description: "rtt sweep", minRTT: 5 * time.Millisecond},
	ScenarioSC4:     {name: "sc4", description: "rtt sweep", minRTT: 10 * time.Millisecond},
	ScenarioSC5:     {name: "sc5", description: "rtt sweep", minRTT: 50 * time.Millisecond},
	ScenarioSC6:     {name: "sc6", description: "rtt sweep", minRTT: 100 * time.Millisecond},
	ScenarioSC7:     {name: "sc7", description: "rtt sweep", minRTT: 150 * time.Millisecond},
}

// InterferenceScenarios returns SC0-SC2.
func InterferenceScenarios() []Scenario {
	return []Scenario{ScenarioSC0, ScenarioSC1, ScenarioSC2}
}

// RTTScenarios returns the RTT sweep scenarios SC3-SC7.
func RTTScenarios() []Scenario {
	return []Scenario{ScenarioSC3, ScenarioSC4, ScenarioSC5, ScenarioSC6, ScenarioSC7}
}

// ParseScenario maps a label to a Scenario. Matching is case-insensitive.
// Unrecognized labels return ScenarioUnknown.
func ParseScenario(s string) Scenario {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, info := range scenarios {
		if Scenario(i) != ScenarioUnknown && info.name == s {
			return Scenario(i)
		}
	}
	return ScenarioUnknown
}

// LookupScenario is like ParseScenario but returns ErrUnknownLabel instead of
// ScenarioUnknown.
func LookupScenario(s string) (Scenario, error) {
	sc := ParseScenario(s)
	if sc == ScenarioUnknown {
		return sc, fmt.Errorf("%w: scenario %q", ErrUnknownLabel, s)
	}
	return sc, nil
}

func (s Scenario) info() scenarioInfo {
	if s < 0 || int(s) >= len(scenarios) {
		return scenarios[ScenarioUnknown]
	}
	return scenarios[s]
}

func (s Scenario) String() string {
	return s.info().name
}

// Description returns a short human readable description of the network
// condition.
func (s Scenario) Description() string {
	return s.info().description
}

// MinRTT returns the target minimum RTT of an RTT sweep scenario. The second
// value is false for scenarios that do not pin the RTT.
func (s Scenario) MinRTT() (time.Duration, bool) {
	rtt := s.info().minRTT
	return rtt, rtt > 0
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (s Scenario) MarshalCSV() (string, error) {
	return s.String(), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (s *Scenario) UnmarshalCSV(v string) error {
	*s = ParseScenario(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Scenario) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scenario) UnmarshalText(b []byte) error {
	*s = ParseScenario(string(b))
	return nil
}
