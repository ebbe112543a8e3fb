// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"net"
	"strconv"
	"time"

	"github.com/jmercer/sentinelmap/internal/config"
	"github.com/jmercer/sentinelmap/internal/eventstore"
	"github.com/jmercer/sentinelmap/internal/logging"
	"github.com/jmercer/sentinelmap/internal/models"
)

// Normalizer converts raw store records to display events and applies the
// scope rules that SQL predicates cannot express: excluded source addresses
// and records that turn out to be unplottable once decoded.
type Normalizer struct {
	excludedIPs   map[string]bool
	excludedCIDRs []*net.IPNet
}

// NewNormalizer builds a normalizer from the feed configuration. Invalid
// entries were already rejected by config validation.
func NewNormalizer(cfg *config.FeedsConfig) *Normalizer {
	ips := make(map[string]bool, len(cfg.ExcludedIPs))
	for _, ip := range cfg.ExcludedIPs {
		ips[ip] = true
	}
	cidrs := make([]*net.IPNet, 0, len(cfg.ExcludedCIDRs))
	for _, cidr := range cfg.ExcludedCIDRs {
		if _, ipNet, err := net.ParseCIDR(cidr); err == nil {
			cidrs = append(cidrs, ipNet)
		}
	}
	return &Normalizer{excludedIPs: ips, excludedCIDRs: cidrs}
}

// Normalize converts one raw record. The second return is false when the
// record must not reach the map: missing ID, no usable timestamp, excluded
// source, or no coordinates. Dropped records are logged at debug level only;
// they are routine, not errors.
func (n *Normalizer) Normalize(rec eventstore.RawRecord) (*models.Event, bool) {
	id, _ := rec["id"].(string)
	if id == "" {
		return nil, false
	}

	ts, ok := rec["timestamp"].(time.Time)
	if !ok {
		logging.Debug().Str("id", id).Msg("dropping record without timestamp")
		return nil, false
	}

	payload, _ := rec["payload"].(map[string]interface{})
	if payload == nil {
		logging.Debug().Str("id", id).Msg("dropping record without payload")
		return nil, false
	}

	srcIP := stringField(payload, "src_ip")
	if srcIP == "" || n.Excluded(srcIP) {
		return nil, false
	}

	event := &models.Event{
		ID:        id,
		Timestamp: ts,
		SourceTag: stringField(rec, "sensor"),
		SrcIP:     srcIP,
		Latitude:  floatField(payload, "src_lat"),
		Longitude: floatField(payload, "src_lon"),
		Country:   stringField(payload, "src_country"),
		Action:    stringField(payload, "action"),
		Port:      intField(payload, "dst_port"),
		Protocol:  stringField(payload, "protocol"),
	}

	if !event.HasCoordinates() {
		logging.Debug().Str("id", id).Str("src_ip", srcIP).Msg("dropping record without coordinates")
		return nil, false
	}
	return event, true
}

// Excluded reports whether a source address is excluded from every feed,
// either exactly or by CIDR membership. Unparsable addresses are excluded:
// a record that claims a nonsense source does not belong on the map.
func (n *Normalizer) Excluded(srcIP string) bool {
	if n.excludedIPs[srcIP] {
		return true
	}
	ip := net.ParseIP(srcIP)
	if ip == nil {
		return true
	}
	for _, cidr := range n.excludedCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// stringField reads a string value, tolerating absence.
func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// floatField reads a numeric value. JSON decoding yields float64, but
// exporters that quote numbers yield strings; both are accepted.
func floatField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// intField reads an integer value with the same tolerance as floatField.
func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}
