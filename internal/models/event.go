// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

// Package models defines the shared data types exchanged between the event
// store, the feed engine, and the HTTP/WebSocket API.
package models

import (
	"time"
)

// Event is a normalized, filtered security event ready for display on the
// attack map. It is built once by the normalizer and is immutable afterwards;
// the feed engine discards it after dispatch.
//
// Fields marked omitempty are optional per sensor kind: honeypot records
// usually carry port/protocol, firewall records additionally carry an action.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SourceTag string    `json:"source_tag"`
	SrcIP     string    `json:"src_ip"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Country   string    `json:"country"`
	Action    string    `json:"action,omitempty"`
	Port      int       `json:"port,omitempty"`
	Protocol  string    `json:"protocol,omitempty"`
}

// WireEvent is the shape of an event as sent to map clients. Source
// coordinates are renamed src_* and the fixed facility coordinates are
// attached as the destination end of the arc.
type WireEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	SourceTag  string    `json:"source_tag"`
	SrcLat     float64   `json:"src_lat"`
	SrcLon     float64   `json:"src_lon"`
	SrcCountry string    `json:"src_country"`
	DstLat     float64   `json:"dst_lat"`
	DstLon     float64   `json:"dst_lon"`
	Port       int       `json:"port,omitempty"`
	Action     string    `json:"action,omitempty"`
	Protocol   string    `json:"protocol,omitempty"`
}

// ToWire converts an Event to its wire shape, attaching the facility
// coordinates as the destination.
func (e *Event) ToWire(dstLat, dstLon float64) WireEvent {
	return WireEvent{
		ID:         e.ID,
		Timestamp:  e.Timestamp,
		SourceTag:  e.SourceTag,
		SrcLat:     e.Latitude,
		SrcLon:     e.Longitude,
		SrcCountry: e.Country,
		DstLat:     dstLat,
		DstLon:     dstLon,
		Port:       e.Port,
		Action:     e.Action,
		Protocol:   e.Protocol,
	}
}

// HasCoordinates reports whether the event can be plotted. Ungeolocated
// events are dropped by the scope filter, not queued.
func (e *Event) HasCoordinates() bool {
	return e.Latitude != 0 || e.Longitude != 0
}

// RecentEventsResponse wraps the recent-events bootstrap endpoint payload.
type RecentEventsResponse struct {
	Events []WireEvent `json:"events"`
	Count  int         `json:"count"`
}
