// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"encoding/json"
	"time"
)

// TelemetryData holds measurements of one decode.
type TelemetryData struct {
	// Format is the detected input format.
	Format Format `json:"format"`

	// InputSize is the size of the input in bytes.
	InputSize int64 `json:"input_size"`

	// OutputSize is the size of the decoded output, summed over entry
	// payloads for containers.
	OutputSize int64 `json:"output_size"`

	// Entries is the number of archive entries, zero for plain streams.
	Entries int64 `json:"entries"`

	// DecodeDuration is the time the decode took.
	DecodeDuration time.Duration `json:"decode_duration"`

	// DecodeError is the error the decode failed with, if any.
	DecodeError error `json:"decode_error"`
}

// String returns a string representation of [TelemetryData].
func (td TelemetryData) String() string {
	b, _ := json.Marshal(td)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (td TelemetryData) MarshalJSON() ([]byte, error) {
	var decodeError string
	if td.DecodeError != nil {
		decodeError = td.DecodeError.Error()
	}

	type Alias TelemetryData
	return json.Marshal(&struct {
		DecodeError string `json:"decode_error"`
		*Alias
	}{
		DecodeError: decodeError,
		Alias:       (*Alias)(&td),
	})
}

// TelemetryHook is a function type that consumes [TelemetryData] after a
// finished decode, which can be used to submit it to a telemetry
// service, for example.
type TelemetryHook func(TelemetryData)
