package models

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// UnmarshalJSON decodes a prompt record leniently. Core fields of the wrong
// type are left zero; CheckPromptShape is what rejects them. A rating that is
// not a number and metadata that is not a Metadata object are kept in Extra.
func (p *Prompt) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: not valid JSON", ErrInvalidShape)
	}
	rec := gjson.ParseBytes(data)
	if !rec.IsObject() {
		return fmt.Errorf("%w: not an object", ErrInvalidShape)
	}

	var out Prompt
	rec.ForEach(func(key, value gjson.Result) bool {
		switch key.Str {
		case "id":
			out.ID = value.Str
			return true
		case "title":
			out.Title = value.Str
			return true
		case "content":
			out.Content = value.Str
			return true
		case "createdAt":
			if value.Type == gjson.Number {
				out.CreatedAt = value.Num
			}
			return true
		case "rating":
			if value.Type == gjson.Number {
				r := value.Num
				out.Rating = &r
				return true
			}
		case "metadata":
			if value.IsObject() {
				var meta Metadata
				if err := json.Unmarshal([]byte(value.Raw), &meta); err == nil {
					out.Metadata = &meta
					return true
				}
			}
		}

		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key.Str] = json.RawMessage(value.Raw)
		return true
	})

	*p = out
	return nil
}

// MarshalJSON writes the typed fields followed by Extra in key order.
func (p Prompt) MarshalJSON() ([]byte, error) {
	type plain Prompt

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(plain(p)); err != nil {
		return nil, err
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")
	if len(p.Extra) == 0 {
		return data, nil
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		if !typedField(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := bytes.NewBuffer(make([]byte, 0, len(data)+64))
	out.Write(data[:len(data)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out.WriteByte(',')
		out.Write(name)
		out.WriteByte(':')
		out.Write(p.Extra[k])
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

// typedField reports whether key is already written from a typed field.
func typedField(key string, p Prompt) bool {
	switch key {
	case "id", "title", "content", "createdAt":
		return true
	case "rating":
		return p.Rating != nil
	case "metadata":
		return p.Metadata != nil
	}
	return false
}
