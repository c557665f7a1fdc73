package amqp

import (
	"time"

	"github.com/goccy/go-json"
)

// DatasetReloadMessage tells consumers that the dataset behind Source was
// replaced and should be read again
type DatasetReloadMessage struct {
	Source    string    `json:"source"`
	Records   int       `json:"records"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetReloadMessage creates a reload message stamped with the current time
func NewDatasetReloadMessage(source string, records int) *DatasetReloadMessage {
	return &DatasetReloadMessage{
		Source:    source,
		Records:   records,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetReloadMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetReloadMessageFromJSON creates a message from JSON bytes
func DatasetReloadMessageFromJSON(data []byte) (*DatasetReloadMessage, error) {
	var msg DatasetReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
