package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ListInput is a multi-valued field as submitted by a client. JSON bodies send native arrays,
// multipart forms send a JSON document inside a string.
type ListInput interface {
	isListInput()
}

type NativeList []string

type EncodedString string

func (NativeList) isListInput()    {}
func (EncodedString) isListInput() {}

var ErrMalformedList = errors.New("value is not a list")

// NormalizeList coerces input into a list. Encoded strings that do not hold a JSON array of
// strings become an empty list.
func NormalizeList(input ListInput) []string {
	values, err := decodeList(input)
	if err != nil {
		return []string{}
	}
	return values
}

func decodeList(input ListInput) ([]string, error) {
	switch v := input.(type) {
	case nil:
		return []string{}, nil
	case NativeList:
		if v == nil {
			return []string{}, nil
		}
		return []string(v), nil
	case EncodedString:
		trimmed := strings.TrimSpace(string(v))
		if trimmed == "" {
			return []string{}, nil
		}
		var values []string
		if err := json.Unmarshal([]byte(trimmed), &values); err != nil {
			return nil, ErrMalformedList
		}
		if values == nil {
			return []string{}, nil
		}
		return values, nil
	}
	return nil, ErrMalformedList
}

// RawList keeps the undecoded JSON of a list field so that validation can tell a malformed
// encoding apart from an empty list.
type RawList []byte

func (r *RawList) UnmarshalJSON(data []byte) error {
	*r = append((*r)[0:0], data...)
	return nil
}

func (r RawList) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// RawListFromForm builds a RawList from multipart form values. A single value is an encoded
// string, repeated values are a native list.
func RawListFromForm(values []string) RawList {
	if len(values) == 0 {
		return nil
	}
	var encoded []byte
	if len(values) == 1 {
		encoded, _ = json.Marshal(values[0])
	} else {
		encoded, _ = json.Marshal(values)
	}
	return RawList(encoded)
}

func (r RawList) Present() bool {
	return len(r) > 0
}

// Input classifies the raw JSON into the ListInput it represents.
func (r RawList) Input() (ListInput, error) {
	trimmed := bytes.TrimSpace(r)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return NativeList{}, nil
	}
	switch trimmed[0] {
	case '[':
		var values []string
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, ErrMalformedList
		}
		return NativeList(values), nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, ErrMalformedList
		}
		return EncodedString(s), nil
	}
	return nil, ErrMalformedList
}

// Strict decodes the list and reports malformed encodings.
func (r RawList) Strict() ([]string, error) {
	input, err := r.Input()
	if err != nil {
		return nil, err
	}
	return decodeList(input)
}

// Values decodes the list leniently.
func (r RawList) Values() []string {
	input, err := r.Input()
	if err != nil {
		return []string{}
	}
	return NormalizeList(input)
}
