package derive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaron8/lossreport-infra/records"
)

func description(size int) records.TestDescription {
	return records.TestDescription{
		Metadata: records.Metadata{Method: "CUSTOM", TestID: "t-1"},
		Duration: 60,
		Connection: records.Connection{
			ClientIP:     "10.0.0.1",
			ServerIP:     "10.0.0.2",
			Port:         5000,
			CycleTime:    10000,
			DatagramSize: size,
		},
		Stress: records.Stress{Type: "NONE", Location: records.LocationBoth},
	}
}

func clientResult(total, losses int64, duration float64, mtu int64) records.ResultFile {
	return records.ResultFile{
		Status: records.StatusSuccess,
		Report: records.FinalReport{Total: total, Losses: losses, TimerMisses: 3, Duration: duration},
		IP:     records.Statistics{CounterMTU: mtu},
	}
}

func TestDerive_SmallDatagram(t *testing.T) {
	m, err := Derive(description(80), clientResult(100000, 0, 10, 1500), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(10000), m.PPSUDP)
	assert.Equal(t, int64(10000), m.PPSIP)
	assert.InDelta(t, 6.4, m.BandwidthNet, 1e-9)
	assert.InDelta(t, 9.76, m.BandwidthGross, 1e-9)
	assert.Equal(t, float64(0), m.LossRatio)
	assert.Equal(t, int64(3), m.TimerMisses)
	assert.Equal(t, float64(10), m.Duration)
}

func TestDerive_FragmentedDatagram(t *testing.T) {
	m, err := Derive(description(8900), clientResult(50000, 0, 10, 1500), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), m.PPSUDP)
	assert.Equal(t, int64(30000), m.PPSIP, "8900 bytes need 6 fragments at MTU 1500")
	assert.InDelta(t, 356.0, m.BandwidthNet, 1e-9)
}

// The oversize branch is a known approximation: it always assumes a
// 65000+280 byte frame, whatever the real fragment count is.
func TestDerive_OversizeGrossBandwidthApproximation(t *testing.T) {
	m, err := Derive(description(8900), clientResult(50000, 0, 10, 1500), nil)
	require.NoError(t, err)
	assert.InDelta(t, 5000*65280*8/1e6, m.BandwidthGross, 1e-9)

	exact := float64(m.PPSIP) * float64(1500+FrameOverhead) * 8 / 1e6
	assert.NotEqual(t, exact, m.BandwidthGross)
}

func TestDerive_PacketRateIsFloored(t *testing.T) {
	m, err := Derive(description(80), clientResult(1001, 0, 10, 1500), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100), m.PPSUDP)
}

func TestDerive_NominalDurationFallback(t *testing.T) {
	m, err := Derive(description(80), clientResult(60000, 6, records.NoDuration, 1500), nil)
	require.NoError(t, err)

	assert.Equal(t, float64(60), m.Duration)
	assert.Equal(t, int64(1000), m.PPSUDP)
	assert.InDelta(t, 0.01, m.LossRatio, 1e-12)
}

func TestDerive_ZeroTotal(t *testing.T) {
	m, err := Derive(description(80), clientResult(0, 0, 10, 1500), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, records.ErrDivisionByZero))
	assert.Equal(t, float64(0), m.LossRatio)
}

func TestDerive_ZeroDuration(t *testing.T) {
	_, err := Derive(description(80), clientResult(100, 0, 0, 1500), nil)
	assert.ErrorIs(t, err, records.ErrDivisionByZero)
}

func TestDerive_MissingMTU(t *testing.T) {
	client := clientResult(100, 0, 10, 0)
	client.IP = nil
	_, err := Derive(description(80), client, nil)
	assert.ErrorIs(t, err, records.ErrMalformedInput)
}

func TestLossLocation(t *testing.T) {
	withCounters := func(losses, txDropped int64) records.ResultFile {
		return records.ResultFile{
			Report:  records.FinalReport{Losses: losses, Total: 1000},
			Ethtool: records.Statistics{CounterTxDropped: txDropped},
		}
	}
	server := func(txDropped, udpErrors int64) *records.ResultFile {
		return &records.ResultFile{
			Ethtool: records.Statistics{CounterTxDropped: txDropped},
			Netstat: records.Statistics{CounterUDPRecErr: udpErrors},
		}
	}

	tests := []struct {
		name   string
		client records.ResultFile
		server *records.ResultFile
		want   string
	}{
		{"no losses", withCounters(0, 12), server(4, 4), ""},
		{"no server data", withCounters(50, 0), nil, "Server [NO DATA]  Route (Switch)"},
		{"client nic without server data", withCounters(50, 3), nil, "Client (NIC)"},
		{"route only", withCounters(50, 0), server(0, 0), "Route (Switch)"},
		{"server udp and route", withCounters(50, 0), server(0, 7), "Server (UDP)  Route (Switch)"},
		{"both nics and udp", withCounters(50, 1), server(2, 7), "Client (NIC)  Server (NIC)  Server (UDP)"},
		{"server nic", withCounters(50, 0), server(2, 0), "Server (NIC)"},
		{"counters absent", records.ResultFile{Report: records.FinalReport{Losses: 1}}, &records.ResultFile{}, "Route (Switch)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LossLocation(tt.client, tt.server))
		})
	}
}

func TestFragments(t *testing.T) {
	assert.Equal(t, int64(1), Fragments(1500, 1500))
	assert.Equal(t, int64(2), Fragments(1501, 1500))
	assert.Equal(t, int64(44), Fragments(65000, 1500))
}

func TestRow(t *testing.T) {
	sc := &records.Scenario{
		Description: description(80),
		Client:      clientResult(100000, 50, 10, 1500),
	}
	row, err := Row(sc)
	require.NoError(t, err)

	assert.Equal(t, "t-1", row.TestID)
	assert.Equal(t, int64(50), row.Losses)
	assert.Equal(t, "Server [NO DATA]  Route (Switch)", row.LossLocation)
	assert.Equal(t, RemarkServerMissing, row.Remarks)
	assert.Equal(t, records.StatusSuccess, row.Status)
	assert.True(t, row.Derived)
}

func TestRow_FailureGoesToRemarks(t *testing.T) {
	sc := &records.Scenario{
		Description: description(80),
		Client:      clientResult(0, 0, 10, 1500),
		Server:      &records.ResultFile{},
	}
	row, err := Row(sc)
	require.ErrorIs(t, err, records.ErrDivisionByZero)
	assert.Contains(t, row.Remarks, "Computation failed")
	assert.NotContains(t, row.Remarks, RemarkServerMissing)
	assert.False(t, row.Derived)
}
