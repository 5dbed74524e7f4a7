package service

import (
	"github.com/okian/wandbrain/internal/adapters/pcap"
	"github.com/okian/wandbrain/internal/domain/tracker"
)

// Stats is a point-in-time snapshot of the service.
type Stats struct {
	Started        bool             `json:"started"`
	UDPAddr        string           `json:"udp_addr,omitempty"`
	ReceiverError  string           `json:"receiver_error,omitempty"`
	Tracker        tracker.Counters `json:"tracker"`
	ActiveAttempts int              `json:"active_attempts"`
	Results        int              `json:"results"`
	ResultsEvicted uint64           `json:"results_evicted"`
	QueueLength    int              `json:"queue_length"`
	QueueCapacity  int              `json:"queue_capacity"`
	Workers        int              `json:"workers"`
	Scored         int64            `json:"scored"`
	Subscribers    int              `json:"subscribers"`
	Replay         *pcap.Stats      `json:"replay,omitempty"`
}
