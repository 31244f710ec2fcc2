package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/go-faster/jx"
)

// BatchRequest is either exactly one request (a bare object on the wire) or
// an ordered list of requests (an array). The shape is kept so that the
// reply mirrors it.
type BatchRequest struct {
	requests []Request
	batch    bool
}

func SingleRequest(req Request) BatchRequest {
	return BatchRequest{requests: []Request{req}}
}

func NewBatchRequest(reqs ...Request) BatchRequest {
	if reqs == nil {
		reqs = []Request{}
	}
	return BatchRequest{requests: reqs, batch: true}
}

// DecodeBatch decodes a whole JSON document. A failure on any element
// rejects the document, partial batches are never produced.
func DecodeBatch(data []byte) (BatchRequest, error) {
	if !jx.Valid(data) {
		return BatchRequest{}, ParseError("invalid JSON")
	}

	d := jx.DecodeBytes(data)
	switch tt := d.Next(); tt {
	case jx.Object:
		msg, err := ParseMessage(data)
		if err != nil {
			return BatchRequest{}, &RequestError{Index: -1, Err: AsError(err)}
		}
		req, err := decodeRequest(msg)
		if err != nil {
			return BatchRequest{}, err
		}
		return SingleRequest(req), nil

	case jx.Array:
		reqs := []Request{}
		// jx wraps callback errors, keep ours unwrapped
		var elemErr *RequestError
		err := d.Arr(func(d *jx.Decoder) error {
			index := len(reqs)
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			msg, err := ParseMessage(raw)
			if err != nil {
				elemErr = &RequestError{Index: index, Err: AsError(err)}
				return elemErr
			}
			req, err := decodeRequest(msg)
			if err != nil {
				var ok bool
				if elemErr, ok = err.(*RequestError); !ok {
					elemErr = &RequestError{Index: index, Err: AsError(err)}
				}
				elemErr.Index = index
				return elemErr
			}
			reqs = append(reqs, req)
			return nil
		})
		if elemErr != nil {
			return BatchRequest{}, elemErr
		}
		if err != nil {
			return BatchRequest{}, ParseError(err.Error())
		}
		return NewBatchRequest(reqs...), nil

	default:
		return BatchRequest{}, ParseError(fmt.Sprintf("unsupported root type: %s", typeName(tt)))
	}
}

func (b *BatchRequest) UnmarshalJSON(data []byte) error {
	batch, err := DecodeBatch(data)
	if err != nil {
		return err
	}
	*b = batch
	return nil
}

// Len returns the number of requests.
func (b BatchRequest) Len() int {
	return len(b.requests)
}

func (b BatchRequest) IsEmpty() bool {
	return b.Len() == 0
}

// IsBatch reports whether the document was an array.
func (b BatchRequest) IsBatch() bool {
	return b.batch
}

// Requests returns the requests in wire order. A single request yields a
// one element slice. The slice is a copy.
func (b BatchRequest) Requests() []Request {
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Single returns the request of a bare object document.
func (b BatchRequest) Single() (Request, bool) {
	if b.batch || len(b.requests) != 1 {
		return Request{}, false
	}
	return b.requests[0], true
}

// BatchResponse mirrors BatchRequest: one response object for a bare
// request object, an array for an array. A single notification has no
// response at all and HasReply reports false; the transport must then send
// no body.
type BatchResponse struct {
	responses []Response
	batch     bool
}

func SingleResponse(resp Response) BatchResponse {
	return BatchResponse{responses: []Response{resp}}
}

func NewBatchResponse(resps ...Response) BatchResponse {
	if resps == nil {
		resps = []Response{}
	}
	return BatchResponse{responses: resps, batch: true}
}

func (b BatchResponse) IsBatch() bool {
	return b.batch
}

func (b BatchResponse) HasReply() bool {
	return b.batch || len(b.responses) > 0
}

func (b BatchResponse) Len() int {
	return len(b.responses)
}

// Responses returns the responses in request order.
func (b BatchResponse) Responses() []Response {
	out := make([]Response, len(b.responses))
	copy(out, b.responses)
	return out
}

// MarshalJSON writes an object or an array following the request shape. An
// empty batch is `[]`, a reply-less single is `null` and should not be sent.
func (b BatchResponse) MarshalJSON() ([]byte, error) {
	if b.batch {
		if b.responses == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(b.responses)
	}
	if len(b.responses) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(b.responses[0])
}

// Outcome is the result of handling one request.
type Outcome struct {
	Result any
	Err    error
}

// Assemble builds the reply for batch. outcomes are positional: outcomes[i]
// belongs to batch.Requests()[i]. Requests without id produce no response.
func Assemble(batch BatchRequest, outcomes []Outcome) BatchResponse {
	resps := make([]Response, 0, len(batch.requests))
	for i := range batch.requests {
		req := &batch.requests[i]
		if req.ID == nil {
			continue
		}

		var out Outcome
		if i < len(outcomes) {
			out = outcomes[i]
		} else {
			out.Err = InternalError("no outcome for request")
		}
		resps = append(resps, outcomeResponse(req.ID, out))
	}

	if batch.batch {
		return NewBatchResponse(resps...)
	}
	if len(resps) == 0 {
		return BatchResponse{}
	}
	return SingleResponse(resps[0])
}

func outcomeResponse(id *RequestID, out Outcome) Response {
	if out.Err != nil {
		return NewErrorResponse(id, out.Err)
	}
	resp, err := NewResponse(id, out.Result).MapResult()
	if err != nil {
		return NewErrorResponse(id, InternalError(fmt.Sprintf("failed to encode result: %v", err)))
	}
	return resp
}
