package records

import "time"

// OverviewRow is one line of the campaign overview table.
type OverviewRow struct {
	Duration       float64 `csv:"Duration (s)" json:"duration"`
	Method         string  `csv:"Method" json:"method"`
	TestID         string  `csv:"Test-ID" json:"test_id"`
	Client         string  `csv:"Client" json:"client"`
	Server         string  `csv:"Server" json:"server"`
	Port           int     `csv:"Port" json:"port"`
	CycleTime      int64   `csv:"Cycle Time (ns)" json:"cycle_time"`
	DatagramSize   int     `csv:"Datagram Size (B)" json:"datagram_size"`
	QoS            bool    `csv:"QoS" json:"qos"`
	Stress         string  `csv:"Stress" json:"stress"`
	Intensity      int     `csv:"Intensity" json:"intensity"`
	Location       string  `csv:"Location" json:"location"`
	Status         string  `csv:"Status" json:"status"`
	Losses         int64   `csv:"Losses [total]" json:"losses"`
	LossRatio      float64 `csv:"Losses [ratio](%)" json:"loss_ratio"`
	LossLocation   string  `csv:"Losses [location]" json:"loss_location"`
	Packets        int64   `csv:"Pakets [total]" json:"packets"`
	PPSUDP         int64   `csv:"PPS [udp]" json:"pps_udp"`
	PPSIP          int64   `csv:"PPS [ip]" json:"pps_ip"`
	BandwidthNet   float64 `csv:"Bandwidth [net](Mbps)" json:"bandwidth_net_mbps"`
	BandwidthGross float64 `csv:"Bandwidth (gross)[Mbps]" json:"bandwidth_gross_mbps"`
	TimerMisses    int64   `csv:"Timer Misses" json:"timer_misses"`
	Remarks        string  `csv:"Remarks" json:"remarks"`

	// Derived is false when the metric columns could not be computed.
	Derived bool `csv:"-" json:"derived"`
}

// GetOverviewHeader returns the overview columns in table order.
func GetOverviewHeader() []string {
	return []string{
		"Duration (s)", "Method", "Test-ID",
		"Client", "Server", "Port",
		"Cycle Time (ns)", "Datagram Size (B)", "QoS",
		"Stress", "Intensity", "Location",
		"Status",
		"Losses [total]", "Losses [ratio](%)", "Losses [location]",
		"Pakets [total]", "PPS [udp]", "PPS [ip]", "Bandwidth [net](Mbps)", "Bandwidth (gross)[Mbps]",
		"Timer Misses",
		"Remarks",
	}
}

// GetOverviewMetrics returns the JSON names of the numeric overview fields that can be queried one by one.
func GetOverviewMetrics() []string {
	return []string{
		"duration",
		"losses",
		"loss_ratio",
		"packets",
		"pps_udp",
		"pps_ip",
		"bandwidth_net_mbps",
		"bandwidth_gross_mbps",
		"timer_misses",
	}
}

// NewOverviewRow fills the descriptive columns of a row; metric columns stay zero.
func NewOverviewRow(sc *Scenario) OverviewRow {
	d := sc.Description
	return OverviewRow{
		Duration:     float64(d.Duration),
		Method:       d.Metadata.Method,
		TestID:       d.Metadata.TestID,
		Client:       d.Connection.ClientIP,
		Server:       d.Connection.ServerIP,
		Port:         d.Connection.Port,
		CycleTime:    d.Connection.CycleTime,
		DatagramSize: d.Connection.DatagramSize,
		QoS:          d.Connection.QoS,
		Stress:       d.Stress.Type,
		Intensity:    d.Stress.Intensity,
		Location:     d.Stress.Location,
		Status:       sc.Client.Status,
	}
}

// Apply copies derived metrics into the row.
func (r *OverviewRow) Apply(m DerivedMetrics) {
	r.Duration = m.Duration
	r.Losses = m.Losses
	r.LossRatio = m.LossRatio
	r.LossLocation = m.LossLocation
	r.Packets = m.Packets
	r.PPSUDP = m.PPSUDP
	r.PPSIP = m.PPSIP
	r.BandwidthNet = m.BandwidthNet
	r.BandwidthGross = m.BandwidthGross
	r.TimerMisses = m.TimerMisses
}

// QueryRow is one line of the per-scenario sample table.
type QueryRow struct {
	Timestamp  float64 `csv:"Timestamp"`
	Total      int64   `csv:"Packets [total]"`
	Losses     int64   `csv:"Losses [Total]"`
	Difference int64   `csv:"Losses [Difference]"`
}

// NewQueryRows converts a repaired sample sequence into table rows.
func NewQueryRows(samples []SampleReport) []QueryRow {
	rows := make([]QueryRow, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, QueryRow{
			Timestamp:  s.Timestamp,
			Total:      s.Total,
			Losses:     s.Losses,
			Difference: s.Difference,
		})
	}
	return rows
}

// LossStats summarises the per-sample loss differences of a repaired sequence.
type LossStats struct {
	Samples   int     `json:"samples"`
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
	Max       float64 `json:"max"`
	StdDev    float64 `json:"stddev"`
	P99       float64 `json:"p99"`
	LossyRuns int     `json:"lossy_samples"`
}

// ReportRecord is the document published to the result store for one scenario.
type ReportRecord struct {
	RunID       string      `json:"run_id"`
	Campaign    string      `json:"campaign"`
	GeneratedAt time.Time   `json:"generated_at"`
	Overview    OverviewRow `json:"overview"`
	Stats       *LossStats  `json:"loss_stats,omitempty"`
}

// RunInfo describes the most recent report run.
type RunInfo struct {
	RunID      string    `json:"run_id"`
	FinishedAt time.Time `json:"finished_at"`
	Campaigns  []string  `json:"campaigns"`
	Scenarios  int       `json:"scenarios"`
	Failures   int       `json:"failures"`
}
