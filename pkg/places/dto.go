package places

import (
	"encoding/json"
	"fmt"
)

// Observation is the wire form of a visit observation. Optional fields
// are pointers and marshal as omitted, never as null. Timestamps are
// epoch milliseconds.
type Observation struct {
	URL                       string  `json:"url"`
	VisitType                 *string `json:"visit_type,omitempty"`
	Title                     *string `json:"title,omitempty"`
	IsError                   *bool   `json:"is_error,omitempty"`
	IsRedirectSource          *bool   `json:"is_redirect_source,omitempty"`
	IsPermanentRedirectSource *bool   `json:"is_permanent_redirect_source,omitempty"`
	At                        *int64  `json:"at,omitempty"`
	Referrer                  *string `json:"referrer,omitempty"`
	IsRemote                  *bool   `json:"is_remote,omitempty"`
}

// SearchResult is the wire form of one autocomplete answer.
type SearchResult struct {
	SearchString string `json:"search_string"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Frecency     int64  `json:"frecency"`
	IconURL      string `json:"icon_url,omitempty"`
}

// UnmarshalJSON decodes an observation tolerantly: unknown fields are
// ignored, and a malformed optional field is treated as absent rather
// than failing the whole record. Only `url` is required; a missing or
// malformed url is an error.
func (o *Observation) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode observation: %w", err)
	}

	raw, ok := fields["url"]
	if !ok {
		return fmt.Errorf("decode observation: missing required field \"url\"")
	}
	if err := json.Unmarshal(raw, &o.URL); err != nil {
		return fmt.Errorf("decode observation: field \"url\": %w", err)
	}

	o.VisitType = optionalString(fields, "visit_type")
	o.Title = optionalString(fields, "title")
	o.IsError = optionalBool(fields, "is_error")
	o.IsRedirectSource = optionalBool(fields, "is_redirect_source")
	o.IsPermanentRedirectSource = optionalBool(fields, "is_permanent_redirect_source")
	o.At = optionalInt64(fields, "at")
	o.Referrer = optionalString(fields, "referrer")
	o.IsRemote = optionalBool(fields, "is_remote")

	return nil
}

// UnmarshalJSON decodes a search result tolerantly, mirroring the
// observation rules: `url` required, everything else recovers to its
// zero value when absent or malformed.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode search result: %w", err)
	}

	raw, ok := fields["url"]
	if !ok {
		return fmt.Errorf("decode search result: missing required field \"url\"")
	}
	if err := json.Unmarshal(raw, &r.URL); err != nil {
		return fmt.Errorf("decode search result: field \"url\": %w", err)
	}

	if s := optionalString(fields, "search_string"); s != nil {
		r.SearchString = *s
	}
	if s := optionalString(fields, "title"); s != nil {
		r.Title = *s
	}
	if n := optionalInt64(fields, "frecency"); n != nil {
		r.Frecency = *n
	}
	if s := optionalString(fields, "icon_url"); s != nil {
		r.IconURL = *s
	}

	return nil
}

func optionalString(fields map[string]json.RawMessage, key string) *string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func optionalBool(fields map[string]json.RawMessage, key string) *bool {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func optionalInt64(fields map[string]json.RawMessage, key string) *int64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}
