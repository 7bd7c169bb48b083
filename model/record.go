// Package model contains the data model shared by the ccstats pipeline.
package model

import "time"

// Record is a single telemetry observation of one connection.
type Record struct {
	// Timestamp is the instant the observation was ingested.
	Timestamp time.Time `json:"timestamp"`

	// SocketID is an opaque identifier of the connection.
	SocketID string `json:"socket_id"`

	// Cwnd is the congestion window in packets.
	Cwnd uint64 `json:"cwnd"`

	// RTT is the smoothed round trip time in milliseconds.
	RTT uint64 `json:"rtt"`

	BytesInFlight uint64 `json:"bytes_in_flight"`

	// Retrans is the connection's retransmission counter. It never decreases
	// within a run.
	Retrans uint64 `json:"retrans"`

	// SendingRate is the smoothed sending rate in Mbit/s. It is nil until the
	// rate calculator has run, and stays nil when no rate sample was
	// available for this position.
	SendingRate *float64 `json:"sending_rate,omitempty"`
}

// Run is the ordered telemetry of one experiment execution. A Run is owned by
// exactly one pipeline invocation and is never shared.
type Run struct {
	Scheme   Scheme
	Scenario Scenario

	// MinRTT is the minimum RTT the network was configured with, zero when
	// unknown.
	MinRTT time.Duration

	Records []Record
}

// Len returns the number of records in the run.
func (r *Run) Len() int {
	return len(r.Records)
}

// StartTime returns the timestamp of the first record, or the zero time for
// an empty run.
func (r *Run) StartTime() time.Time {
	if len(r.Records) == 0 {
		return time.Time{}
	}
	return r.Records[0].Timestamp
}

// EndTime returns the timestamp of the last record, or the zero time for an
// empty run.
func (r *Run) EndTime() time.Time {
	if len(r.Records) == 0 {
		return time.Time{}
	}
	return r.Records[len(r.Records)-1].Timestamp
}
