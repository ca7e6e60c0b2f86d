package tui

import (
	"encoding/json"
	"errors"
	"io"
)

// JSONOutput writes every message as a JSON object, one per line, for
// scripts and executors.
type JSONOutput struct {
	w       io.Writer
	encoder *json.Encoder
}

// NewJSONOutput creates a new JSONOutput.
func NewJSONOutput(w io.Writer) *JSONOutput {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return &JSONOutput{w: w, encoder: encoder}
}

type jsonMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type jsonError struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	Hint       string `json:"hint,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Success outputs {"type": "success", "message": ...}.
func (o *JSONOutput) Success(msg string) {
	//nolint:errchkjson // Method has no error return per interface contract
	_ = o.encoder.Encode(jsonMessage{Type: "success", Message: msg})
}

// Error outputs {"type": "error"} with the wrapped cause in details and,
// for an ActionableError, its hint and suggestion.
func (o *JSONOutput) Error(err error) {
	out := jsonError{Type: "error", Message: err.Error()}

	var ae *ActionableError
	if errors.As(err, &ae) {
		out.Hint = ae.Hint
		out.Suggestion = ae.Suggestion
	}
	if wrapped := errors.Unwrap(err); wrapped != nil {
		out.Details = wrapped.Error()
	}

	//nolint:errchkjson // Method has no error return per interface contract
	_ = o.encoder.Encode(out)
}

// Warning outputs {"type": "warning", "message": ...}.
func (o *JSONOutput) Warning(msg string) {
	//nolint:errchkjson // Method has no error return per interface contract
	_ = o.encoder.Encode(jsonMessage{Type: "warning", Message: msg})
}

// Info outputs {"type": "info", "message": ...}.
func (o *JSONOutput) Info(msg string) {
	//nolint:errchkjson // Method has no error return per interface contract
	_ = o.encoder.Encode(jsonMessage{Type: "info", Message: msg})
}

// Table outputs rows as an array of objects keyed by header.
func (o *JSONOutput) Table(headers []string, rows [][]string) {
	result := make([]map[string]string, 0, len(rows))
	if len(headers) > 0 {
		for _, row := range rows {
			obj := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(row) {
					obj[h] = stripANSI(row[i])
				} else {
					obj[h] = ""
				}
			}
			result = append(result, obj)
		}
	}
	//nolint:errchkjson // Method has no error return per interface contract
	_ = o.encoder.Encode(result)
}

// JSON outputs an arbitrary value.
func (o *JSONOutput) JSON(v any) error {
	return o.encoder.Encode(v)
}
