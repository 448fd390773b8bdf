package xmllog

import "encoding/xml"

// Pointer fields stay nil when the element is absent, which is how required
// elements are told apart from empty ones.

type xmlDescription struct {
	Metadata *struct {
		Method *string `xml:"method"`
		TestID *string `xml:"t_uid"`
		Path   *string `xml:"path"`
	} `xml:"metadata"`
	Duration   *string `xml:"duration"`
	Connection *struct {
		Custom *struct {
			ClientIP *string `xml:"client_ip"`
			ServerIP *string `xml:"server_ip"`
			Port     *string `xml:"port"`
			Gap      *string `xml:"gap"`
			Datagram *struct {
				Size *string `xml:"size"`
			} `xml:"datagram"`
			QoS *string `xml:"qos"`
		} `xml:"custom"`
	} `xml:"connection"`
	Interface *struct {
		Client *string `xml:"client"`
		Server *string `xml:"server"`
	} `xml:"interface"`
	Stress *struct {
		Type     *string `xml:"type"`
		Num      *string `xml:"num"`
		Location *string `xml:"location"`
	} `xml:"stress"`
}

type xmlResults struct {
	Status *string `xml:"status"`
	Custom *struct {
		NumTotal    *string   `xml:"num_total"`
		NumLoss     *string   `xml:"num_loss"`
		NumMisses   *string   `xml:"num_misses"`
		ElapsedTime *string   `xml:"elapsed_time"`
		Query       *xmlQuery `xml:"query"`
	} `xml:"custom"`
	Ethtool *xmlStatistics `xml:"ethtool_statistic"`
	IP      *xmlStatistics `xml:"ip_statistic"`
	Netstat *xmlStatistics `xml:"netstat_statistic"`
}

type xmlQuery struct {
	Reports []xmlReport `xml:"report"`
}

// xmlReport carries the test suite's swapped fields: <total> holds the loss
// counter and <misses> the packet total.
type xmlReport struct {
	Total     *string `xml:"total"`
	Misses    *string `xml:"misses"`
	Timestamp *string `xml:"timestamp"`
}

type xmlStatistics struct {
	Counters []xmlCounter `xml:",any"`
}

type xmlCounter struct {
	XMLName xml.Name
	Start   *string `xml:"start"`
	End     *string `xml:"end"`
}
