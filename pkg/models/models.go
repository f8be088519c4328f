// Package models holds types shared between the HTTP service and the log
// sink.
package models

import "time"

// LogEntry describes one served request. It is published to Kafka by the
// service and indexed into Elasticsearch by the log sink.
type LogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration_sec"`
	BytesOut   int       `json:"bytes_out"`
	Service    string    `json:"service"`
}

// DocumentID identifies the entry in the log index; a redelivered message
// overwrites instead of duplicating.
func (e LogEntry) DocumentID() string {
	return e.Service + e.RequestID
}
