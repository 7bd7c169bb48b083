// Package parser turns raw kernel log lines emitted by the tcp_monitor kernel module
// into telemetry records.
package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/metrics"
	"github.com/m-lab/ccstats/model"
)

// Tag marks the log lines that carry telemetry.
const Tag = "TCP_MONITOR"

// maxLineSize bounds the length of a single log line. Longer lines are
// skipped and counted as malformed.
const maxLineSize = 64 << 10

var (
	// ErrUntagged is returned by ParseLine for lines without Tag.
	ErrUntagged = errors.New("line does not carry " + Tag)

	// ErrMalformed is returned by ParseLine for tagged lines that do not
	// match the expected format.
	ErrMalformed = errors.New("malformed " + Tag + " line")
)

var lineRe = regexp.MustCompile(
	Tag + `: sock=(\S+) cwnd=(\d+) rtt=(\d+) bytes_in_flight=(\d+) retrans=(\d+)`)

// ParseLine parses a single log line. Text surrounding the tagged section is
// ignored. The returned record has a zero Timestamp.
func ParseLine(line string) (model.Record, error) {
	if !strings.Contains(line, Tag) {
		return model.Record{}, ErrUntagged
	}
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return model.Record{}, ErrMalformed
	}
	var values [4]uint64
	for i := range values {
		v, err := strconv.ParseUint(m[i+2], 10, 64)
		if err != nil {
			return model.Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		values[i] = v
	}
	return model.Record{
		SocketID:      m[1],
		Cwnd:          values[0],
		RTT:           values[1],
		BytesInFlight: values[2],
		Retrans:       values[3],
	}, nil
}

// FormatLine renders a record in the tagged line format accepted by
// ParseLine.
func FormatLine(r model.Record) string {
	return fmt.Sprintf("%s: sock=%s cwnd=%d rtt=%d bytes_in_flight=%d retrans=%d",
		Tag, r.SocketID, r.Cwnd, r.RTT, r.BytesInFlight, r.Retrans)
}

// Stats counts the lines seen by a Parser.
type Stats struct {
	Parsed    int
	Untagged  int
	Malformed int
}

// Lines returns the total number of lines read.
func (s Stats) Lines() int {
	return s.Parsed + s.Untagged + s.Malformed
}

// Parser is a lazy, forward only iterator over the records of a log stream.
// Malformed and untagged lines are skipped. A Parser cannot be rewound; to
// parse the same stream again, create a new Parser over a fresh reader.
type Parser struct {
	reader *bufio.Reader
	clock  Clock
	record model.Record
	stats  Stats
	done   bool
	err    error
}

// New returns a Parser reading lines from r and stamping records with clock.
// A nil clock means WallClock.
func New(r io.Reader, clock Clock) *Parser {
	if clock == nil {
		clock = WallClock{}
	}
	return &Parser{
		reader: bufio.NewReaderSize(r, maxLineSize),
		clock:  clock,
	}
}

// readLine returns the next line without its line ending. The second value
// is true when the line exceeded maxLineSize; its content is then discarded.
func (p *Parser) readLine() ([]byte, bool, error) {
	tooLong := false
	for {
		frag, err := p.reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			tooLong = true
			continue
		}
		if tooLong {
			return nil, true, err
		}
		frag = bytes.TrimSuffix(frag, []byte("\n"))
		return bytes.TrimSuffix(frag, []byte("\r")), false, err
	}
}

// Next advances to the next record. It returns false at the end of the
// stream or on a read error, which is then available from Err.
func (p *Parser) Next() bool {
	for !p.done {
		line, tooLong, rerr := p.readLine()
		if rerr != nil {
			p.done = true
			if rerr != io.EOF {
				p.err = rerr
			}
			if len(line) == 0 && !tooLong {
				// Nothing after the last line ending.
				continue
			}
		}
		if tooLong {
			p.stats.Malformed++
			metrics.ParserLines.WithLabelValues("malformed").Inc()
			logging.Logger.Debugf("parser: skipped a line longer than %d bytes", maxLineSize)
			continue
		}
		rec, err := ParseLine(string(line))
		switch {
		case errors.Is(err, ErrUntagged):
			p.stats.Untagged++
			metrics.ParserLines.WithLabelValues("untagged").Inc()
			continue
		case err != nil:
			p.stats.Malformed++
			metrics.ParserLines.WithLabelValues("malformed").Inc()
			continue
		}
		rec.Timestamp = p.clock.Now()
		p.record = rec
		p.stats.Parsed++
		metrics.ParserLines.WithLabelValues("parsed").Inc()
		return true
	}
	return false
}

// Record returns the record produced by the last successful call to Next.
func (p *Parser) Record() model.Record {
	return p.record
}

// Err returns the first read error encountered, if any.
func (p *Parser) Err() error {
	return p.err
}

// Stats returns the line counts so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Collect drains p into a Run labelled with scheme and scenario.
func Collect(p *Parser, scheme model.Scheme, scenario model.Scenario) (*model.Run, error) {
	run := &model.Run{Scheme: scheme, Scenario: scenario}
	for p.Next() {
		run.Records = append(run.Records, p.Record())
	}
	stats := p.Stats()
	logging.Logger.WithFields(log.Fields{
		"scheme":    scheme.String(),
		"scenario":  scenario.String(),
		"parsed":    stats.Parsed,
		"untagged":  stats.Untagged,
		"malformed": stats.Malformed,
	}).Debug("parser: done")
	if err := p.Err(); err != nil {
		return run, fmt.Errorf("reading log stream: %w", err)
	}
	return run, nil
}
