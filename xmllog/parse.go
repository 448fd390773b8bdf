// Package xmllog reads the XML logs written by the UDP test suite.
package xmllog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"github.com/yaron8/lossreport-infra/records"
)

const (
	DescriptionFile = "test_description.xml"
	ResultsFile     = "test_results.xml"

	methodCustom  = "CUSTOM"
	statusSuccess = "STATUS_SUCCESS"
)

var stressLocations = map[string]string{
	"LOC_BOTH":   records.LocationBoth,
	"LOC_CLIENT": records.LocationClient,
	"LOC_SERVER": records.LocationServer,
}

// Results is the content of one test_results.xml.
type Results struct {
	File records.ResultFile
	// Samples holds the periodic query reports; HasSamples is false when the
	// log has no <query> element at all.
	Samples    []records.SampleReport
	HasSamples bool
}

// ParseDescriptionFile parses test_description.xml in dir.
func ParseDescriptionFile(dir string) (records.TestDescription, error) {
	f, err := os.Open(filepath.Join(dir, DescriptionFile))
	if err != nil {
		return records.TestDescription{}, err
	}
	defer f.Close()
	return ParseDescription(f)
}

// ParseResultsFile parses test_results.xml in dir.
func ParseResultsFile(dir string) (*Results, error) {
	f, err := os.Open(filepath.Join(dir, ResultsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseResults(f)
}

// ParseDescription decodes a test description document.
func ParseDescription(r io.Reader) (records.TestDescription, error) {
	var doc xmlDescription
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return records.TestDescription{}, fmt.Errorf("%s: %v: %w", DescriptionFile, err, records.ErrMalformedInput)
	}

	var (
		desc records.TestDescription
		p    parser
	)

	if doc.Metadata == nil {
		p.missing("metadata")
	} else {
		desc.Metadata.Method = p.text("metadata/method", doc.Metadata.Method)
		desc.Metadata.TestID = p.text("metadata/t_uid", doc.Metadata.TestID)
		desc.Metadata.Path = p.text("metadata/path", doc.Metadata.Path)
	}
	desc.Duration = int(p.integer("duration", doc.Duration))

	if desc.Metadata.Method == methodCustom {
		if doc.Connection == nil || doc.Connection.Custom == nil {
			p.missing("connection/custom")
		} else {
			c := doc.Connection.Custom
			desc.Connection.ClientIP = p.text("connection/custom/client_ip", c.ClientIP)
			desc.Connection.ServerIP = p.text("connection/custom/server_ip", c.ServerIP)
			desc.Connection.Port = int(p.integer("connection/custom/port", c.Port))
			desc.Connection.CycleTime = p.integer("connection/custom/gap", c.Gap)
			if c.Datagram == nil {
				p.missing("connection/custom/datagram")
			} else {
				desc.Connection.DatagramSize = int(p.integer("connection/custom/datagram/size", c.Datagram.Size))
			}
			desc.Connection.QoS = p.boolean("connection/custom/qos", c.QoS)
		}
	}

	if doc.Interface == nil {
		p.missing("interface")
	} else {
		desc.Interfaces.Client = p.text("interface/client", doc.Interface.Client)
		desc.Interfaces.Server = p.text("interface/server", doc.Interface.Server)
	}

	if doc.Stress == nil {
		p.missing("stress")
	} else {
		desc.Stress.Type = p.text("stress/type", doc.Stress.Type)
		desc.Stress.Intensity = int(p.integer("stress/num", doc.Stress.Num))
		location := p.text("stress/location", doc.Stress.Location)
		if mapped, ok := stressLocations[location]; ok {
			desc.Stress.Location = mapped
		} else if p.err == nil {
			p.err = fmt.Errorf("stress/location: unknown value %q: %w", location, records.ErrMalformedInput)
		}
	}

	if p.err != nil {
		return records.TestDescription{}, fmt.Errorf("%s: %w", DescriptionFile, p.err)
	}
	return desc, nil
}

// ParseResults decodes a test results document.
func ParseResults(r io.Reader) (*Results, error) {
	var doc xmlResults
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", ResultsFile, err, records.ErrMalformedInput)
	}

	var (
		res Results
		p   parser
	)

	if p.text("status", doc.Status) == statusSuccess {
		res.File.Status = records.StatusSuccess
	} else {
		res.File.Status = records.StatusError
	}

	if doc.Custom == nil {
		p.missing("custom")
	} else {
		c := doc.Custom
		res.File.Report.Total = p.integer("custom/num_total", c.NumTotal)
		res.File.Report.Losses = p.integer("custom/num_loss", c.NumLoss)
		res.File.Report.TimerMisses = p.integer("custom/num_misses", c.NumMisses)
		res.File.Report.Duration = records.NoDuration
		if c.ElapsedTime != nil {
			res.File.Report.Duration = p.float("custom/elapsed_time", c.ElapsedTime)
		}

		if c.Query != nil {
			res.HasSamples = true
			res.Samples = p.samples(c.Query.Reports)
		}
	}

	res.File.Ethtool = p.statistics("ethtool_statistic", doc.Ethtool)
	res.File.IP = p.statistics("ip_statistic", doc.IP)
	res.File.Netstat = p.statistics("netstat_statistic", doc.Netstat)

	if p.err != nil {
		return nil, fmt.Errorf("%s: %w", ResultsFile, p.err)
	}
	return &res, nil
}

var errNotDecimal = errors.New("not a decimal number")

// parser keeps the first conversion error so field extraction reads linearly.
type parser struct {
	err error
}

func (p *parser) missing(path string) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: element missing: %w", path, records.ErrMalformedInput)
	}
}

func (p *parser) invalid(path, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: invalid value %q: %v: %w", path, value, err, records.ErrMalformedInput)
	}
}

func (p *parser) text(path string, v *string) string {
	if v == nil {
		p.missing(path)
		return ""
	}
	return strings.TrimSpace(*v)
}

func (p *parser) integer(path string, v *string) int64 {
	if v == nil {
		p.missing(path)
		return 0
	}
	s := strings.TrimSpace(*v)
	d, err := decimal(s)
	if err != nil {
		p.invalid(path, s, err)
		return 0
	}
	n, err := cast.ToInt64E(d)
	if err != nil {
		p.invalid(path, s, err)
	}
	return n
}

func (p *parser) float(path string, v *string) float64 {
	if v == nil {
		p.missing(path)
		return 0
	}
	s := strings.TrimSpace(*v)
	d, err := decimal(s)
	if err != nil {
		p.invalid(path, s, err)
		return 0
	}
	f, err := cast.ToFloat64E(d)
	if err != nil {
		p.invalid(path, s, err)
	}
	return f
}

// decimal strips leading zeros so that cast does not read "010" as octal.
// Base prefixes and digit separators are rejected.
func decimal(s string) (string, error) {
	if strings.ContainsAny(s, "_xXoObB") {
		return "", errNotDecimal
	}
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if t := strings.TrimLeft(s, "0"); t != s {
		if t == "" || t[0] == '.' || t[0] == 'e' || t[0] == 'E' {
			t = "0" + t
		}
		s = t
	}
	return sign + s, nil
}

func (p *parser) boolean(path string, v *string) bool {
	if v == nil {
		p.missing(path)
		return false
	}
	s := strings.TrimSpace(*v)
	b, err := cast.ToBoolE(s)
	if err != nil {
		p.invalid(path, s, err)
	}
	return b
}

func (p *parser) samples(reports []xmlReport) []records.SampleReport {
	out := make([]records.SampleReport, 0, len(reports))
	for i, r := range reports {
		path := fmt.Sprintf("custom/query/report[%d]", i)
		s := records.SampleReport{
			Losses:    p.integer(path+"/total", r.Total),
			Total:     p.integer(path+"/misses", r.Misses),
			Timestamp: records.NoTimestamp,
		}
		if r.Timestamp != nil {
			s.Timestamp = p.float(path+"/timestamp", r.Timestamp)
		}
		s.Difference = s.Losses
		if i > 0 {
			s.Difference = s.Losses - out[i-1].Losses
		}
		out = append(out, s)
	}
	return out
}

// statistics flattens a counter section into end-start deltas; mtu keeps its
// end value.
func (p *parser) statistics(section string, stats *xmlStatistics) records.Statistics {
	if stats == nil {
		return nil
	}
	out := make(records.Statistics, len(stats.Counters))
	for _, c := range stats.Counters {
		name := c.XMLName.Local
		path := section + "/" + name
		end := p.integer(path+"/end", c.End)
		if name == "mtu" {
			out[name] = end
			continue
		}
		out[name] = end - p.integer(path+"/start", c.Start)
	}
	return out
}
