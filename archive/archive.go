// Package archive keeps the enriched records of a run next to its summary,
// so that a run can be analysed again without re-parsing the kernel log.
package archive

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-lab/go/prometheusx"

	"github.com/m-lab/ccstats/logging"
	"github.com/m-lab/ccstats/metadata"
	"github.com/m-lab/ccstats/model"
)

// CurrentSchemaVersion is the version of Header and Row. It must be
// incremented on every change to either structure.
const CurrentSchemaVersion = 1

// Archive formats.
const (
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"
)

// Formats lists the supported formats.
var Formats = []string{FormatJSONL, FormatParquet}

// ErrUnknownFormat is returned for unsupported archive formats.
var ErrUnknownFormat = errors.New("unknown archive format")

// Header describes an archived run. It is the first line of a JSONL archive.
type Header struct {
	// GitShortCommit is the Git commit (short form) of the running code.
	GitShortCommit string
	SchemaVersion  int

	RunID    string
	Scheme   model.Scheme
	Scenario model.Scenario

	MinRTT    time.Duration `json:",omitempty"`
	StartTime time.Time
	EndTime   time.Time
	Records   int

	Summary *model.RunSummary `json:",omitempty"`

	Metadata []metadata.NameValue `json:",omitempty"`
}

// Row is one archived record.
type Row struct {
	RunID         string   `json:"run_id" parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Scheme        string   `json:"cc_scheme" parquet:"name=cc_scheme, type=BYTE_ARRAY, convertedtype=UTF8"`
	Scenario      string   `json:"scenario" parquet:"name=scenario, type=BYTE_ARRAY, convertedtype=UTF8"`
	TimestampUs   int64    `json:"timestamp_us" parquet:"name=timestamp_us, type=INT64, convertedtype=TIMESTAMP_MICROS"`
	SocketID      string   `json:"socket_id" parquet:"name=socket_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Cwnd          int64    `json:"cwnd" parquet:"name=cwnd, type=INT64"`
	RTT           int64    `json:"rtt" parquet:"name=rtt, type=INT64"`
	BytesInFlight int64    `json:"bytes_in_flight" parquet:"name=bytes_in_flight, type=INT64"`
	Retrans       int64    `json:"retrans" parquet:"name=retrans, type=INT64"`
	SendingRate   *float64 `json:"sending_rate,omitempty" parquet:"name=sending_rate, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// NewRow converts a record of a run.
func NewRow(runID string, run *model.Run, r *model.Record) Row {
	return Row{
		RunID:         runID,
		Scheme:        run.Scheme.String(),
		Scenario:      run.Scenario.String(),
		TimestampUs:   r.Timestamp.UnixMicro(),
		SocketID:      r.SocketID,
		Cwnd:          int64(r.Cwnd),
		RTT:           int64(r.RTT),
		BytesInFlight: int64(r.BytesInFlight),
		Retrans:       int64(r.Retrans),
		SendingRate:   r.SendingRate,
	}
}

// Record converts the row back to a record.
func (row *Row) Record() model.Record {
	return model.Record{
		Timestamp:     time.UnixMicro(row.TimestampUs).UTC(),
		SocketID:      row.SocketID,
		Cwnd:          uint64(row.Cwnd),
		RTT:           uint64(row.RTT),
		BytesInFlight: uint64(row.BytesInFlight),
		Retrans:       uint64(row.Retrans),
		SendingRate:   row.SendingRate,
	}
}

// fileName returns datadir/ccstats/<date>/ccstats-<scheme>-<scenario>-<time>.<id>.<ext>
// and makes sure the directory exists.
func fileName(datadir string, run *model.Run, id, ext string) string {
	timestamp := run.StartTime()
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	timestamp = timestamp.UTC()
	dir := path.Join(datadir, "ccstats", timestamp.Format("2006/01/02"))
	return dir + "/ccstats-" + run.Scheme.String() + "-" + run.Scenario.String() + "-" +
		timestamp.Format("20060102T150405.000000000Z") + "." + id + "." + ext
}

// Write archives run, and its summary when not nil, in datadir using format.
// The labels are kept in the header of JSONL archives. It returns the path of
// the archive.
func Write(datadir, format string, run *model.Run, summary *model.RunSummary, labels ...metadata.NameValue) (string, error) {
	id := uuid.NewString()
	header := Header{
		GitShortCommit: prometheusx.GitShortCommit,
		SchemaVersion:  CurrentSchemaVersion,
		RunID:          id,
		Scheme:         run.Scheme,
		Scenario:       run.Scenario,
		MinRTT:         run.MinRTT,
		StartTime:      run.StartTime(),
		EndTime:        run.EndTime(),
		Records:        run.Len(),
		Summary:        summary,
		Metadata:       labels,
	}
	var (
		name string
		err  error
	)
	switch strings.ToLower(format) {
	case FormatJSONL:
		name, err = writeJSONL(datadir, &header, run)
	case FormatParquet:
		name, err = writeParquet(datadir, id, run)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		logging.Logger.WithError(err).Warn("archive: write failed")
		return "", err
	}
	return name, nil
}
