// Package xmltest writes test-suite XML logs for tests.
package xmltest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Test describes one test folder to write.
type Test struct {
	ID           string
	DatagramSize int
	CycleTime    int64
	Duration     int
	Status       string // defaults to STATUS_SUCCESS

	Total       int64
	Losses      int64
	TimerMisses int64
	Elapsed     float64 // written only when > 0

	MTU           int64
	TxDropped     int64
	UDPRecErr     int64
	QueryLosses   []int64 // nil: no <query> element
	QueryTotals   []int64
	OmitTimestamp bool
}

// Description renders test_description.xml.
func Description(t Test) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<test_description>
  <metadata>
    <method>CUSTOM</method>
    <t_uid>%s</t_uid>
    <path>/tmp/%s</path>
  </metadata>
  <duration>%d</duration>
  <connection>
    <custom>
      <client_ip>10.0.0.1</client_ip>
      <server_ip>10.0.0.2</server_ip>
      <port>5001</port>
      <gap>%d</gap>
      <datagram>
        <size>%d</size>
      </datagram>
      <qos>true</qos>
    </custom>
  </connection>
  <interface>
    <client>enp1s0</client>
    <server>enp2s0</server>
  </interface>
  <stress>
    <type>CPU</type>
    <num>4</num>
    <location>LOC_SERVER</location>
  </stress>
</test_description>
`, t.ID, t.ID, t.Duration, t.CycleTime, t.DatagramSize)
}

// Results renders test_results.xml.
func Results(t Test) string {
	status := t.Status
	if status == "" {
		status = "STATUS_SUCCESS"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<test_results>\n  <status>%s</status>\n  <custom>\n", status)
	fmt.Fprintf(&b, "    <num_total>%d</num_total>\n    <num_loss>%d</num_loss>\n    <num_misses>%d</num_misses>\n",
		t.Total, t.Losses, t.TimerMisses)
	if t.Elapsed > 0 {
		fmt.Fprintf(&b, "    <elapsed_time>%g</elapsed_time>\n", t.Elapsed)
	}
	if t.QueryLosses != nil {
		b.WriteString("    <query>\n")
		for i, l := range t.QueryLosses {
			total := int64(i+1) * 1000
			if i < len(t.QueryTotals) {
				total = t.QueryTotals[i]
			}
			// the suite writes losses into <total> and the packet count into <misses>
			fmt.Fprintf(&b, "      <report>\n        <total>%d</total>\n        <misses>%d</misses>\n", l, total)
			if !t.OmitTimestamp {
				fmt.Fprintf(&b, "        <timestamp>%d</timestamp>\n", i+1)
			}
			b.WriteString("      </report>\n")
		}
		b.WriteString("    </query>\n")
	}
	b.WriteString("  </custom>\n")
	fmt.Fprintf(&b, "  <ethtool_statistic>\n    <tx_dropped><start>100</start><end>%d</end></tx_dropped>\n    <rx_packets><start>0</start><end>%d</end></rx_packets>\n  </ethtool_statistic>\n",
		100+t.TxDropped, t.Total)
	fmt.Fprintf(&b, "  <ip_statistic>\n    <mtu><start>%d</start><end>%d</end></mtu>\n  </ip_statistic>\n", t.MTU, t.MTU)
	fmt.Fprintf(&b, "  <netstat_statistic>\n    <udp_rec_err><start>5</start><end>%d</end></udp_rec_err>\n  </netstat_statistic>\n",
		5+t.UDPRecErr)
	b.WriteString("</test_results>\n")
	return b.String()
}

// WriteTest writes both log files of t into dir/<t.ID>.
func WriteTest(dir string, t Test) (string, error) {
	testDir := filepath.Join(dir, t.ID)
	if err := os.MkdirAll(testDir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(testDir, "test_description.xml"), []byte(Description(t)), 0644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(testDir, "test_results.xml"), []byte(Results(t)), 0644); err != nil {
		return "", err
	}
	return testDir, nil
}

// WriteCampaign writes client tests and, for the IDs listed in withServer,
// the matching server tests below root/<name>.
func WriteCampaign(root, name string, tests []Test, withServer map[string]Test) (string, error) {
	campaignDir := filepath.Join(root, name)
	for _, t := range tests {
		if _, err := WriteTest(filepath.Join(campaignDir, "client"), t); err != nil {
			return "", err
		}
	}
	for _, t := range withServer {
		if _, err := WriteTest(filepath.Join(campaignDir, "server"), t); err != nil {
			return "", err
		}
	}
	return campaignDir, nil
}
