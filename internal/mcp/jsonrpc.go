package mcp

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-faster/jx"
)

const (
	JsonRPCVersion = "2.0"
)

// Documents: https://www.jsonrpc.org/specification

// RequestID is either an integer or a string. It is carried opaquely and
// echoed back unchanged in the matching response.
type RequestID struct {
	num   int64
	str   string
	isStr bool
}

func IntID(n int64) RequestID {
	return RequestID{num: n}
}

func StringID(s string) RequestID {
	return RequestID{str: s, isStr: true}
}

func (id RequestID) IsString() bool {
	return id.isStr
}

// Int returns the numeric value, ok is false for string ids.
func (id RequestID) Int() (int64, bool) {
	return id.num, !id.isStr
}

// Str returns the string value, ok is false for numeric ids.
func (id RequestID) Str() (string, bool) {
	return id.str, id.isStr
}

// Key distinguishes 1 from "1" and is suitable as a map key.
func (id RequestID) Key() string {
	if id.isStr {
		return "s:" + id.str
	}
	return "n:" + strconv.FormatInt(id.num, 10)
}

func (id RequestID) String() string {
	if id.isStr {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

func (id RequestID) Encode(e *jx.Encoder) {
	if id.isStr {
		e.Str(id.str)
		return
	}
	e.Int64(id.num)
}

func (id *RequestID) Decode(d *jx.Decoder) error {
	switch tt := d.Next(); tt {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		if !n.IsInt() {
			return fmt.Errorf("request id must be an integer, got %s", n.String())
		}
		v, err := n.Int64()
		if err != nil {
			return err
		}
		*id = IntID(v)
		return nil
	default:
		return fmt.Errorf("request id must be an integer or a string, got %s", typeName(tt))
	}
}

func (id RequestID) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	id.Encode(&e)
	return e.Bytes(), nil
}

func (id *RequestID) UnmarshalJSON(data []byte) error {
	return id.Decode(jx.DecodeBytes(data))
}

// Request
//
//	{
//		jsonrpc: "2.0",
//		id?: number | string,
//		method: string,
//		params?: object
//	}
//
// A request without id is a notification.
type Request struct {
	JsonRPC string
	ID      *RequestID
	Body    Body
}

func (r *Request) Method() string {
	if r.Body == nil {
		return ""
	}
	return r.Body.Method()
}

func (r *Request) IsNotification() bool {
	return r.ID == nil
}

func (r *Request) IsInitialize() bool {
	_, ok := r.Body.(Initialize)
	return ok
}

// Validate checks the envelope. The body is decoded regardless of the
// version tag, so a request with a foreign version is rejected here.
func (r *Request) Validate() error {
	if r.JsonRPC != JsonRPCVersion {
		return InvalidRequest(fmt.Sprintf("unsupported jsonrpc version: %q", r.JsonRPC))
	}
	if r.Body == nil {
		return InvalidRequest("missing request body")
	}
	return nil
}

// UnmarshalJSON decodes a single request object, normalizing it first.
func (r *Request) UnmarshalJSON(data []byte) error {
	msg, err := ParseMessage(data)
	if err != nil {
		return err
	}
	req, err := decodeRequest(msg)
	if err != nil {
		return err
	}
	*r = req
	return nil
}

// Response
//
//	{
//		jsonrpc: "2.0",
//		id?: number | string,
//		result?: object,
//		error?: {
//			code: number,
//			message: string,
//			data?: unknown
//		}
//	}
type Response struct {
	JsonRPC string     `json:"jsonrpc"`
	ID      *RequestID `json:"id,omitempty"`
	Result  any        `json:"result,omitempty"`
	Error   *Error     `json:"error,omitempty"`
}

func NewResponse(id *RequestID, result any) Response {
	if result == nil {
		result = EmptyResult{}
	}
	return Response{
		JsonRPC: JsonRPCVersion,
		ID:      id,
		Result:  result,
	}
}

func NewErrorResponse(id *RequestID, err error) Response {
	return Response{
		JsonRPC: JsonRPCVersion,
		ID:      id,
		Error:   AsError(err),
	}
}

// MapResult encodes the result into raw JSON so that an unencodable result
// fails here, per response, instead of while writing the whole reply.
func (r Response) MapResult() (Response, error) {
	if r.Result == nil {
		return r, nil
	}
	if _, ok := r.Result.(json.RawMessage); ok {
		return r, nil
	}
	b, err := json.Marshal(r.Result)
	if err != nil {
		return r, err
	}
	r.Result = json.RawMessage(b)
	return r, nil
}

// EmptyResult is the `{}` result of ping and of notifications sent with an id.
type EmptyResult struct{}

func typeName(tt jx.Type) string {
	switch tt {
	case jx.Object:
		return "object"
	case jx.Array:
		return "array"
	case jx.String:
		return "string"
	case jx.Number:
		return "number"
	case jx.Bool:
		return "boolean"
	case jx.Null:
		return "null"
	default:
		return "invalid"
	}
}
