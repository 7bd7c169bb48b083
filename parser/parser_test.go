package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/m-lab/ccstats/model"
)

var epoch = time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    model.Record
		wantErr error
	}{
		{
			name: "plain",
			line: "TCP_MONITOR: sock=ffff9a1b cwnd=10 rtt=100 bytes_in_flight=1000 retrans=0",
			want: model.Record{SocketID: "ffff9a1b", Cwnd: 10, RTT: 100, BytesInFlight: 1000},
		},
		{
			name: "kernel-prefix",
			line: "[ 1234.567890] TCP_MONITOR: sock=0x1 cwnd=12 rtt=7 bytes_in_flight=1200 retrans=3 extra",
			want: model.Record{SocketID: "0x1", Cwnd: 12, RTT: 7, BytesInFlight: 1200, Retrans: 3},
		},
		{
			name:    "untagged",
			line:    "kernel: eth0 link up",
			wantErr: ErrUntagged,
		},
		{
			name:    "missing-field",
			line:    "TCP_MONITOR: sock=a cwnd=10 rtt=100 retrans=0",
			wantErr: ErrMalformed,
		},
		{
			name:    "negative",
			line:    "TCP_MONITOR: sock=a cwnd=-10 rtt=100 bytes_in_flight=1 retrans=0",
			wantErr: ErrMalformed,
		},
		{
			name:    "reordered",
			line:    "TCP_MONITOR: sock=a rtt=100 cwnd=10 bytes_in_flight=1 retrans=0",
			wantErr: ErrMalformed,
		},
		{
			name:    "overflow",
			line:    "TCP_MONITOR: sock=a cwnd=18446744073709551616 rtt=1 bytes_in_flight=1 retrans=0",
			wantErr: ErrMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseLine() error = %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatLine(t *testing.T) {
	want := model.Record{SocketID: "s1", Cwnd: 1, RTT: 2, BytesInFlight: 3, Retrans: 4}
	got, err := ParseLine("prefix " + FormatLine(want))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseLine(FormatLine()) = %+v, want %+v", got, want)
	}
}

func TestParser(t *testing.T) {
	input := strings.Join([]string{
		"boot: starting",
		"TCP_MONITOR: sock=a cwnd=10 rtt=100 bytes_in_flight=1000 retrans=0",
		"TCP_MONITOR: garbage",
		"TCP_MONITOR: sock=a cwnd=12 rtt=100 bytes_in_flight=1200 retrans=1",
		"",
		"TCP_MONITOR: sock=a cwnd=14 rtt=100 bytes_in_flight=1400 retrans=1",
	}, "\n")
	p := New(strings.NewReader(input), NewReplayClock(epoch, time.Second))
	run, err := Collect(p, model.SchemeCubic, model.ScenarioSC0)
	if err != nil {
		t.Fatal(err)
	}
	if run.Scheme != model.SchemeCubic || run.Scenario != model.ScenarioSC0 {
		t.Errorf("Collect() labels = %v/%v", run.Scheme, run.Scenario)
	}
	if run.Len() != 3 {
		t.Fatalf("Collect() returned %d records, want 3", run.Len())
	}
	for i, cwnd := range []uint64{10, 12, 14} {
		r := run.Records[i]
		if r.Cwnd != cwnd {
			t.Errorf("record %d cwnd = %d, want %d", i, r.Cwnd, cwnd)
		}
		if want := epoch.Add(time.Duration(i) * time.Second); !r.Timestamp.Equal(want) {
			t.Errorf("record %d timestamp = %v, want %v", i, r.Timestamp, want)
		}
	}
	want := Stats{Parsed: 3, Untagged: 2, Malformed: 1}
	if got := p.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
	if p.Stats().Lines() != 6 {
		t.Errorf("Lines() = %d, want 6", p.Stats().Lines())
	}
}

func TestParser_LongLines(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	tests := []struct {
		name  string
		input string
		want  Stats
	}{
		{
			name: "middle",
			input: "TCP_MONITOR: sock=a cwnd=10 rtt=100 bytes_in_flight=1000 retrans=0\n" +
				long + "\n" +
				"TCP_MONITOR: sock=a cwnd=12 rtt=100 bytes_in_flight=1200 retrans=1\r\n" +
				"TCP_MONITOR: sock=a cwnd=14 rtt=100 bytes_in_flight=1400 retrans=1\n",
			want: Stats{Parsed: 3, Malformed: 1},
		},
		{
			name: "last-without-newline",
			input: "TCP_MONITOR: sock=a cwnd=10 rtt=100 bytes_in_flight=1000 retrans=0\n" +
				"TCP_MONITOR: sock=a cwnd=12 rtt=100 bytes_in_flight=1200 retrans=1\n" +
				"TCP_MONITOR: sock=a cwnd=14 rtt=100 bytes_in_flight=1400 retrans=1\n" +
				"TCP_MONITOR: " + long,
			want: Stats{Parsed: 3, Malformed: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(strings.NewReader(tt.input), NewReplayClock(epoch, time.Second))
			run, err := Collect(p, model.SchemeBBR, model.ScenarioSC2)
			if err != nil {
				t.Fatalf("Collect() error = %v", err)
			}
			if run.Len() != 3 {
				t.Fatalf("Collect() returned %d records, want 3", run.Len())
			}
			for i, cwnd := range []uint64{10, 12, 14} {
				if run.Records[i].Cwnd != cwnd {
					t.Errorf("record %d cwnd = %d, want %d", i, run.Records[i].Cwnd, cwnd)
				}
			}
			if got := p.Stats(); got != tt.want {
				t.Errorf("Stats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParser_Empty(t *testing.T) {
	p := New(strings.NewReader("nothing to see\n"), nil)
	if p.Next() {
		t.Fatal("Next() = true on a stream without records")
	}
	if p.Err() != nil {
		t.Errorf("Err() = %v", p.Err())
	}
}

func TestCollect_ReadError(t *testing.T) {
	p := New(iotest.ErrReader(errors.New("boom")), nil)
	run, err := Collect(p, model.SchemeReno, model.ScenarioSC1)
	if err == nil {
		t.Fatal("Collect() expected an error")
	}
	if run.Len() != 0 {
		t.Errorf("Collect() returned %d records", run.Len())
	}
}

func TestReplayClock(t *testing.T) {
	c := NewReplayClock(epoch, 10*time.Millisecond)
	for i := 0; i < 3; i++ {
		want := epoch.Add(time.Duration(i) * 10 * time.Millisecond)
		if got := c.Now(); !got.Equal(want) {
			t.Errorf("Now() = %v, want %v", got, want)
		}
	}
}
