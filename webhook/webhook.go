package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

/* Record represents one captured inbound request
 * Uses value semantics as it represents data, not behavior.
 * A record is never modified after NewRecord returns it.
 */
type Record struct {
	Timestamp    time.Time         `json:"timestamp"`
	ClientIP     string            `json:"client_ip"`
	Method       string            `json:"method"`
	Path         string            `json:"path"`
	Headers      map[string]string `json:"headers"`
	Payload      any               `json:"payload"`
	OriginalPort int               `json:"original_port"`
}

// Capture holds the raw request facts the ingestion endpoint hands over
type Capture struct {
	ClientIP     string
	Method       string
	Path         string
	Headers      map[string][]string
	Body         []byte
	OriginalPort int
	ReceivedAt   time.Time
}

// Batch is an ordered group of records persisted together
type Batch []Record

// Bytes returns the JSON encoding of the record
func (r Record) Bytes() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling record: %w", err)
	}
	return data, nil
}
