package records

import "errors"

const (
	// NoTimestamp marks a sample report without a <timestamp> element.
	NoTimestamp = -1
	// NoDuration marks a final report without an <elapsed_time> element.
	NoDuration = -1
)

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

const (
	LocationClient = "CLIENT"
	LocationServer = "SERVER"
	LocationBoth   = "BOTH"
)

var (
	// ErrMalformedInput is returned when a mandatory XML element is missing or unreadable.
	ErrMalformedInput = errors.New("malformed input")
	// ErrDivisionByZero is returned when a ratio or rate would divide by a zero total or duration.
	ErrDivisionByZero = errors.New("division by zero")
)

// SampleReport is one periodic loss-counter sample sent by the client during a test.
type SampleReport struct {
	Timestamp  float64 `json:"timestamp"`
	Total      int64   `json:"total"`
	Losses     int64   `json:"losses"`
	Difference int64   `json:"difference"`
}

// FinalReport is the terminal summary of a test run.
type FinalReport struct {
	Total       int64   `json:"total"`
	Losses      int64   `json:"losses"`
	TimerMisses int64   `json:"timer_misses"`
	Duration    float64 `json:"duration"`
}

// Statistics maps a counter name to its delta over the test (mtu keeps its end value).
// A nil map means the section was not present in the log.
type Statistics map[string]int64

// Get returns the counter value and whether it was recorded.
func (s Statistics) Get(name string) (int64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s[name]
	return v, ok
}

// ResultFile is the parsed content of one test_results.xml.
type ResultFile struct {
	Status  string      `json:"status"`
	Report  FinalReport `json:"report"`
	Ethtool Statistics  `json:"ethtool_statistic,omitempty"`
	IP      Statistics  `json:"ip_statistic,omitempty"`
	Netstat Statistics  `json:"netstat_statistic,omitempty"`
}

type Metadata struct {
	Method string `json:"method"`
	TestID string `json:"t_uid"`
	Path   string `json:"path"`
}

type Connection struct {
	ClientIP     string `json:"client_ip"`
	ServerIP     string `json:"server_ip"`
	Port         int    `json:"port"`
	CycleTime    int64  `json:"cycle_time"` // ns
	DatagramSize int    `json:"datagram_size"`
	QoS          bool   `json:"qos"`
}

type Interfaces struct {
	Client string `json:"client"`
	Server string `json:"server"`
}

type Stress struct {
	Type      string `json:"type"`
	Intensity int    `json:"intensity"`
	Location  string `json:"location"`
}

// TestDescription holds the static parameters of a test (test_description.xml).
type TestDescription struct {
	Metadata   Metadata   `json:"metadata"`
	Duration   int        `json:"duration"`
	Connection Connection `json:"connection"`
	Interfaces Interfaces `json:"interfaces"`
	Stress     Stress     `json:"stress"`
}

// Scenario bundles everything parsed for one test folder.
type Scenario struct {
	Name        string
	Description TestDescription
	Client      ResultFile
	Server      *ResultFile
	// Samples is only meaningful when HasSamples is set; a log without <query> has none.
	Samples    []SampleReport
	HasSamples bool
}

// HasServerData reports whether the server side of the test was collected.
func (s *Scenario) HasServerData() bool {
	return s.Server != nil
}

// DerivedMetrics is the per-scenario result of metrics derivation.
type DerivedMetrics struct {
	Duration       float64 `json:"duration"`
	Losses         int64   `json:"losses"`
	LossRatio      float64 `json:"loss_ratio"`
	LossLocation   string  `json:"loss_location"`
	Packets        int64   `json:"packets"`
	PPSUDP         int64   `json:"pps_udp"`
	PPSIP          int64   `json:"pps_ip"`
	BandwidthNet   float64 `json:"bandwidth_net_mbps"`
	BandwidthGross float64 `json:"bandwidth_gross_mbps"`
	TimerMisses    int64   `json:"timer_misses"`
}
