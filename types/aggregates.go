/*
 * NETCAP - Traffic Analysis Framework
 * Copyright (c) 2017-2020 Philipp Mieden <dreadl0ck [at] protonmail [dot] ch>
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package types

// PacketSummary holds the coarse totals for a capture.
type PacketSummary struct {
	TotalPackets    int     `json:"total_packets"`
	TotalBytes      int     `json:"total_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
	FirstTimestamp  float64 `json:"first_timestamp"`
	LastTimestamp   float64 `json:"last_timestamp"`
}

// ProtocolStats is one row of the top-10 protocol breakdown.
type ProtocolStats struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TalkerStats is one row of the top-10 talkers-by-traffic breakdown.
type TalkerStats struct {
	IP              string `json:"ip"`
	PacketsSent     int    `json:"packets_sent"`
	PacketsReceived int    `json:"packets_received"`
	BytesSent       int    `json:"bytes_sent"`
	BytesReceived   int    `json:"bytes_received"`
}

// TimelinePoint is one bucket (or resampled point) of the traffic timeline.
type TimelinePoint struct {
	Time    string `json:"time"`
	Bytes   int    `json:"bytes"`
	Packets int    `json:"packets"`
}

// SummaryResult is the output of decoder.AnalyzeSummary.
type SummaryResult struct {
	Summary    PacketSummary   `json:"summary"`
	Protocols  []ProtocolStats `json:"protocols"`
	TopTalkers []TalkerStats   `json:"top_talkers"`
	Timeline   []TimelinePoint `json:"timeline"`
}

// HTTPRecord is one request or response row emitted by the HTTP aggregator.
type HTTPRecord struct {
	Frame  string `json:"frame"`
	Stream string `json:"stream"`
	Type   string `json:"type"`

	Method string `json:"method,omitempty"`
	Host   string `json:"host,omitempty"`
	Path   string `json:"path,omitempty"`
	UA     string `json:"ua,omitempty"`

	Status string `json:"status,omitempty"`
	CType  string `json:"ctype,omitempty"`
}

// HostCount is a generic name/count pair used for top-N tables.
type HostCount struct {
	Host  string `json:"host"`
	Count int    `json:"count"`
}

// HTTPResult is the output of decoder.AnalyzeHTTP.
type HTTPResult struct {
	TotalRequests  int          `json:"total_requests"`
	TotalResponses int          `json:"total_responses"`
	UniqueHosts    int          `json:"unique_hosts"`
	Requests       []HTTPRecord `json:"requests"`
	TopHosts       []HostCount  `json:"top_hosts"`
}

// DNSQuery is one query/response record emitted by the DNS aggregator.
type DNSQuery struct {
	Frame      string   `json:"frame"`
	ID         string   `json:"id"`
	Domain     string   `json:"domain"`
	Type       string   `json:"type"`
	Answers    []string `json:"answers"`
	RCode      string   `json:"rcode,omitempty"`
	IsResponse bool     `json:"is_response"`
}

// DomainCount is a domain/count pair used for the DNS top-10 table.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// DNSResult is the output of decoder.AnalyzeDNS.
type DNSResult struct {
	TotalQueries   int           `json:"total_queries"`
	TotalResponses int           `json:"total_responses"`
	UniqueDomains  int           `json:"unique_domains"`
	Queries        []DNSQuery    `json:"queries"`
	TopDomains     []DomainCount `json:"top_domains"`
}

// TLSHandshake is a single Client/Server Hello observed by the TLS aggregator.
type TLSHandshake struct {
	SNI     string `json:"sni,omitempty"`
	Version string `json:"version"`
	Type    string `json:"type"`
	Cipher  string `json:"cipher,omitempty"`
}

// SNICount is an SNI/count pair used for the TLS top-10 table.
type SNICount struct {
	SNI   string `json:"sni"`
	Count int    `json:"count"`
}

// TLSResult is the output of decoder.AnalyzeTLS.
type TLSResult struct {
	TotalHandshakes int            `json:"total_handshakes"`
	UniqueSNI       int            `json:"unique_sni"`
	Handshakes      []TLSHandshake `json:"handshakes"`
	TopSNI          []SNICount     `json:"top_sni"`
	Versions        map[string]int `json:"versions"`
}

// SecurityAlert is one detected anomaly from the security aggregator.
type SecurityAlert struct {
	Severity       string `json:"severity"`
	AlertType      string `json:"alert_type"`
	Description    string `json:"description"`
	SourceIP       string `json:"source_ip"`
	TargetIP       string `json:"target_ip,omitempty"`
	PayloadPreview string `json:"payload_preview,omitempty"`
}

// SecurityResult is the output of decoder.AnalyzeSecurity.
type SecurityResult struct {
	SecurityAlerts []SecurityAlert `json:"security_alerts"`
	TotalAlerts    int             `json:"total_alerts"`
}

// TCPSession is one aggregated tcp.stream row from the TCP-sessions aggregator.
type TCPSession struct {
	SessionID    string  `json:"session_id"`
	SrcIP        string  `json:"src_ip"`
	SrcPort      int     `json:"src_port"`
	DstIP        string  `json:"dst_ip"`
	DstPort      int     `json:"dst_port"`
	PacketCount  int     `json:"packet_count"`
	ByteCount    int     `json:"byte_count"`
	Duration     float64 `json:"duration"`
	StartTime    float64 `json:"start_time"`
	PayloadASCII string  `json:"payload_ascii"`
	PayloadHex   string  `json:"payload_hex"`
	Protocol     string  `json:"protocol"`
	Summary      string  `json:"summary"`
}

// TCPSessionsResult is the output of decoder.AnalyzeTCPSessions.
type TCPSessionsResult struct {
	TCPSessions   []TCPSession `json:"tcp_sessions"`
	TotalSessions int          `json:"total_sessions"`
}

// TCPAnomalyEvent is one anomalous packet observed within a stream.
type TCPAnomalyEvent struct {
	Frame string   `json:"frame"`
	Time  string   `json:"time"`
	Len   string   `json:"len"`
	Types []string `json:"types"`
	Src   string   `json:"src"`
	Dst   string   `json:"dst"`
	TCP   struct {
		Seq      string `json:"seq"`
		Ack      string `json:"ack"`
		Win      string `json:"win"`
		FlagsStr string `json:"flags_str"`
		FlagsHex string `json:"flags_hex"`
	} `json:"tcp"`
}

// TCPAnomalySession aggregates anomaly events for a single tcp.stream.
type TCPAnomalySession struct {
	StreamID       string            `json:"stream_id"`
	Src            string            `json:"src"`
	Dst            string            `json:"dst"`
	AnomalySummary map[string]int    `json:"anomaly_summary"`
	EventsCount    int               `json:"events_count"`
	Events         []TCPAnomalyEvent `json:"events"`
}

// TCPAnomaliesResult is the output of decoder.AnalyzeTCPAnomalies.
type TCPAnomaliesResult struct {
	TotalAnomalies     map[string]int       `json:"total_anomalies"`
	AnomalousSessions  []TCPAnomalySession  `json:"anomalous_sessions"`
}
