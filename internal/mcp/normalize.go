package mcp

import (
	"sort"

	"github.com/go-faster/jx"
)

// Message is one JSON object held as raw member values. It is the mutable
// tree the normalizer rewrites before a message is decoded into a Request.
type Message map[string]jx.Raw

// ParseMessage splits a raw JSON object into its members.
func ParseMessage(data []byte) (Message, error) {
	d := jx.DecodeBytes(data)
	if tt := d.Next(); tt != jx.Object {
		return nil, InvalidRequest("request must be an object, got " + typeName(tt))
	}

	msg := make(Message)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		// the decoder buffer is not ours to keep
		msg[string(key)] = append(jx.Raw(nil), raw...)
		return nil
	})
	if err != nil {
		return nil, ParseError(err.Error())
	}
	return msg, nil
}

// Has reports whether key is present, null included.
func (m Message) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Str returns the member as a string; ok is false when it is absent or not
// a string.
func (m Message) Str(key string) (string, bool) {
	raw, ok := m[key]
	if !ok || raw.Type() != jx.String {
		return "", false
	}
	s, err := jx.DecodeBytes(raw).Str()
	if err != nil {
		return "", false
	}
	return s, true
}

// Object returns the member as a nested message when it is an object.
func (m Message) Object(key string) (Message, bool) {
	raw, ok := m[key]
	if !ok || raw.Type() != jx.Object {
		return nil, false
	}
	obj, err := ParseMessage(raw)
	if err != nil {
		return nil, false
	}
	return obj, true
}

// IsNull reports whether the member is present and null.
func (m Message) IsNull(key string) bool {
	raw, ok := m[key]
	return ok && raw.Type() == jx.Null
}

// Method returns the method tag or "".
func (m Message) Method() string {
	method, _ := m.Str("method")
	return method
}

// Encode writes the message with keys in sorted order.
func (m Message) Encode(e *jx.Encoder) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.ObjStart()
	for _, k := range keys {
		e.FieldStart(k)
		e.Raw(m[k])
	}
	e.ObjEnd()
}

func (m Message) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	m.Encode(&e)
	return e.Bytes(), nil
}

// Normalize rewrites a message into the canonical shape expected by the
// method decoders. It is idempotent and only touches two methods:
//
//   - notifications/initialized: an empty params object is removed.
//   - notifications/cancelled: request_id/requestId and reason nested under
//     params are lifted to the top level unless already present there.
func Normalize(msg Message) {
	if msg == nil {
		return
	}

	switch msg.Method() {
	case MethodInitialized:
		if params, ok := msg.Object("params"); ok && len(params) == 0 {
			delete(msg, "params")
		}
	case MethodCancelled:
		params, ok := msg.Object("params")
		if !ok {
			return
		}
		if !msg.Has("request_id") && !msg.Has("requestId") {
			if id, ok := params["request_id"]; ok {
				msg["request_id"] = id
			} else if id, ok := params["requestId"]; ok {
				msg["request_id"] = id
			}
		}
		if !msg.Has("reason") {
			if reason, ok := params["reason"]; ok {
				msg["reason"] = reason
			}
		}
	}
}
