// Package derive turns a finished test's counters and parameters into
// bandwidth, packet-rate and loss metrics.
package derive

import (
	"fmt"
	"math"
	"strings"

	"github.com/yaron8/lossreport-infra/records"
)

const (
	// FrameOverhead is the Ethernet, IP and UDP framing added to each datagram on the wire.
	FrameOverhead = 42
	// OversizeFrameBytes approximates the wire size of a fragmented datagram.
	// It is not derived from the fragment count and is only exact for 65000-byte datagrams.
	OversizeFrameBytes = 65000 + 280

	CounterTxDropped = "tx_dropped"
	CounterUDPRecErr = "udp_rec_err"
	CounterMTU       = "mtu"
)

const (
	LabelClientNIC    = "Client (NIC)"
	LabelServerNIC    = "Server (NIC)"
	LabelServerUDP    = "Server (UDP)"
	LabelRoute        = "Route (Switch)"
	LabelServerNoData = "Server [NO DATA]  Route (Switch)"

	RemarkServerMissing = "Server data missing."

	labelSeparator = "  "
)

// ResolveDuration returns the measured duration when present and the nominal
// test duration otherwise.
func ResolveDuration(report records.FinalReport, desc records.TestDescription) float64 {
	if report.Duration == records.NoDuration {
		return float64(desc.Duration)
	}
	return report.Duration
}

// Derive computes the metrics of one scenario. server is nil when no server
// data was collected.
func Derive(desc records.TestDescription, client records.ResultFile, server *records.ResultFile) (records.DerivedMetrics, error) {
	report := client.Report
	m := records.DerivedMetrics{
		Duration:    ResolveDuration(report, desc),
		Losses:      report.Losses,
		Packets:     report.Total,
		TimerMisses: report.TimerMisses,
	}

	ratio, err := LossRatio(report.Losses, report.Total)
	if err != nil {
		return m, err
	}
	m.LossRatio = ratio
	m.LossLocation = LossLocation(client, server)

	mtu, ok := client.IP.Get(CounterMTU)
	if !ok || mtu <= 0 {
		return m, fmt.Errorf("ip_statistic/mtu: %w", records.ErrMalformedInput)
	}

	rate, err := PacketRate(report.Total, m.Duration)
	if err != nil {
		return m, err
	}
	size := desc.Connection.DatagramSize

	m.PPSUDP = rate
	m.PPSIP = rate * Fragments(size, mtu)
	m.BandwidthNet = float64(m.PPSUDP) * float64(size) * 8 / 1e6
	m.BandwidthGross = GrossBandwidth(m.PPSUDP, m.PPSIP, size, mtu)
	return m, nil
}

// LossRatio returns losses/total in percent.
func LossRatio(losses, total int64) (float64, error) {
	if total == 0 {
		return 0, fmt.Errorf("loss ratio with zero packets: %w", records.ErrDivisionByZero)
	}
	return float64(losses) / float64(total) * 100, nil
}

// PacketRate returns whole UDP packets per second.
func PacketRate(total int64, duration float64) (int64, error) {
	if duration <= 0 {
		return 0, fmt.Errorf("packet rate with duration %v: %w", duration, records.ErrDivisionByZero)
	}
	return int64(math.Floor(float64(total) / duration)), nil
}

// Fragments returns the number of IP packets needed to carry one datagram.
func Fragments(datagramSize int, mtu int64) int64 {
	if int64(datagramSize) <= mtu {
		return 1
	}
	return int64(math.Ceil(float64(datagramSize) / float64(mtu)))
}

// GrossBandwidth returns the on-wire bandwidth in Mbit/s including framing.
func GrossBandwidth(ppsUDP, ppsIP int64, datagramSize int, mtu int64) float64 {
	if int64(datagramSize) <= mtu {
		return float64(ppsIP) * float64(datagramSize+FrameOverhead) * 8 / 1e6
	}
	return float64(ppsUDP) * OversizeFrameBytes * 8 / 1e6
}

// LossLocation names the layers that most likely dropped packets. Labels are
// independent and may co-occur; missing counters count as zero.
func LossLocation(client records.ResultFile, server *records.ResultFile) string {
	if client.Report.Losses <= 0 {
		return ""
	}

	var labels []string
	clientDropped, _ := client.Ethtool.Get(CounterTxDropped)
	if clientDropped > 0 {
		labels = append(labels, LabelClientNIC)
	}

	if server == nil {
		if clientDropped == 0 {
			labels = append(labels, LabelServerNoData)
		}
		return strings.Join(labels, labelSeparator)
	}

	serverDropped, _ := server.Ethtool.Get(CounterTxDropped)
	if serverDropped > 0 {
		labels = append(labels, LabelServerNIC)
	}
	if udpErrors, _ := server.Netstat.Get(CounterUDPRecErr); udpErrors > 0 {
		labels = append(labels, LabelServerUDP)
	}
	if clientDropped == 0 && serverDropped == 0 {
		labels = append(labels, LabelRoute)
	}
	return strings.Join(labels, labelSeparator)
}

// Remarks builds the remarks column for a scenario and its computation error, if any.
func Remarks(sc *records.Scenario, err error) string {
	var parts []string
	if !sc.HasServerData() {
		parts = append(parts, RemarkServerMissing)
	}
	if err != nil {
		parts = append(parts, "Computation failed: "+err.Error()+".")
	}
	return strings.Join(parts, " ")
}

// Row derives the metrics of sc and returns the complete overview row. A
// failed derivation still yields a row, with the failure in its remarks.
func Row(sc *records.Scenario) (records.OverviewRow, error) {
	row := records.NewOverviewRow(sc)
	m, err := Derive(sc.Description, sc.Client, sc.Server)
	row.Apply(m)
	row.Derived = err == nil
	row.Remarks = Remarks(sc, err)
	return row, err
}
