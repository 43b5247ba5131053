// internal/settings/record.go
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// Namespace is the options key owned by the login-info feature.
	Namespace = "pluginLoginInfo"
	// RecordNumberKey is the only field this feature writes inside Namespace.
	RecordNumberKey = "recordNumber"
	// DefaultRecordNumber is materialized by EnsureDefault when nothing is stored yet.
	DefaultRecordNumber = "10"
)

// Options is the generic options map of the host settings record. Values are kept as
// raw JSON so keys owned by other features pass through untouched.
type Options map[string]json.RawMessage

// Record is the host application's singleton settings row.
type Record struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Options   Options   `json:"options"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy of the options map. The raw values are copied as well so callers
// can never alias store-owned memory.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		cp := make(json.RawMessage, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// MarshalOptions encodes options without HTML escaping so stored sibling values keep
// their bytes.
func MarshalOptions(o Options) ([]byte, error) {
	if o == nil {
		o = Options{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o); err != nil {
		return nil, fmt.Errorf("error encoding options: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalOptions decodes a stored options document. Empty input yields an empty map.
func UnmarshalOptions(data []byte) (Options, error) {
	opts := Options{}
	if len(bytes.TrimSpace(data)) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("error decoding options: %w", err)
	}
	if opts == nil {
		opts = Options{}
	}
	return opts, nil
}

// LoginInfo is the decoded view of options[Namespace]. RecordNumber is nil when the
// namespace or the field has never been written.
type LoginInfo struct {
	RecordNumber *string
	extra        map[string]json.RawMessage
}

// Value returns the record number or "" when unset.
func (l LoginInfo) Value() string {
	if l.RecordNumber == nil {
		return ""
	}
	return *l.RecordNumber
}

// Initialized reports whether a non-empty record number is stored.
func (l LoginInfo) Initialized() bool {
	return l.Value() != ""
}

// ParseLoginInfo extracts the owned namespace. A namespace that is not a JSON object, or a
// recordNumber that is not a string or number, reads as unset.
func ParseLoginInfo(opts Options) LoginInfo {
	info := LoginInfo{extra: map[string]json.RawMessage{}}
	raw, ok := opts[Namespace]
	if !ok {
		return info
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return info
	}
	for k, v := range fields {
		if k == RecordNumberKey {
			continue
		}
		info.extra[k] = v
	}
	if v, ok := fields[RecordNumberKey]; ok {
		if s, ok := decodeRecordNumber(v); ok {
			info.RecordNumber = &s
		}
	}
	return info
}

func decodeRecordNumber(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// MergeRecordNumber returns a copy of opts where only options[Namespace].recordNumber is
// set to value. Every other options key, and every other key inside the namespace, keeps
// its original raw bytes.
func MergeRecordNumber(opts Options, value string) (Options, error) {
	merged := opts.Clone()
	info := ParseLoginInfo(opts)

	fields := make(map[string]json.RawMessage, len(info.extra)+1)
	for k, v := range info.extra {
		fields[k] = v
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("error encoding record number: %w", err)
	}
	fields[RecordNumberKey] = encoded

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("error encoding %s namespace: %w", Namespace, err)
	}
	merged[Namespace] = json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
	return merged, nil
}
