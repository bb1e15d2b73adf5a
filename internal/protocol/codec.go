package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned for an envelope whose type is not in the set
// for its direction.
var ErrUnknownType = errors.New("unknown message type")

// DecodeError wraps a malformed message. The connection stays usable.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode message: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

type envelope struct {
	Type      string          `json:"type"`
	RequestID int             `json:"requestId,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
}

func encode(typ string, requestID int, body any) ([]byte, error) {
	env := envelope{Type: typ, RequestID: requestID}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", typ, err)
		}
		env.Body = raw
	}
	return json.Marshal(env)
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, &DecodeError{Raw: string(data), Err: err}
	}
	return env, nil
}

func decodeBody(env envelope, raw []byte, dst any) error {
	if len(env.Body) == 0 || string(env.Body) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Body, dst); err != nil {
		return &DecodeError{Raw: string(raw), Err: fmt.Errorf("%s body: %w", env.Type, err)}
	}
	return nil
}

func decodeAs[T any](env envelope, raw []byte) (T, error) {
	var m T
	err := decodeBody(env, raw, &m)
	return m, err
}

// EncodeOutbound serializes a session-to-surface message.
func EncodeOutbound(m Outbound) ([]byte, error) {
	switch m := m.(type) {
	case Init, Update, State, Diff, Status, Saved, Buffer:
		return encode(m.outboundType(), 0, m)
	case GetFileData:
		return encode(TypeGetFileData, m.RequestID, struct{}{})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
}

// DecodeInbound parses a surface-to-session message.
func DecodeInbound(data []byte) (Inbound, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeReady:
		return Ready{}, nil
	case TypeUpdateComment:
		return decodeAs[UpdateComment](env, data)
	case TypeEdit:
		return decodeAs[Edit](env, data)
	case TypeAction:
		return decodeAs[Action](env, data)
	case TypeResponse:
		if env.RequestID == 0 {
			return nil, &DecodeError{Raw: string(data), Err: errors.New("response without requestId")}
		}
		return Response{RequestID: env.RequestID, Body: env.Body}, nil
	default:
		return nil, &DecodeError{Raw: string(data), Err: fmt.Errorf("%w %q", ErrUnknownType, env.Type)}
	}
}

// EncodeInbound serializes a surface-to-session message. Surfaces and
// tests use it.
func EncodeInbound(m Inbound) ([]byte, error) {
	switch m := m.(type) {
	case Ready:
		return encode(TypeReady, 0, nil)
	case UpdateComment, Edit, Action:
		return encode(m.inboundType(), 0, m)
	case Response:
		env := envelope{Type: TypeResponse, RequestID: m.RequestID, Body: m.Body}
		return json.Marshal(env)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
}

// DecodeOutbound parses a session-to-surface message.
func DecodeOutbound(data []byte) (Outbound, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeInit:
		return decodeAs[Init](env, data)
	case TypeUpdate:
		return decodeAs[Update](env, data)
	case TypeGetFileData:
		return GetFileData{RequestID: env.RequestID}, nil
	case TypeState:
		return decodeAs[State](env, data)
	case TypeDiff:
		return decodeAs[Diff](env, data)
	case TypeStatus:
		return decodeAs[Status](env, data)
	case TypeSaved:
		return decodeAs[Saved](env, data)
	case TypeBuffer:
		return decodeAs[Buffer](env, data)
	default:
		return nil, &DecodeError{Raw: string(data), Err: fmt.Errorf("%w %q", ErrUnknownType, env.Type)}
	}
}

// NewFileDataResponse builds the reply to a GetFileData request.
func NewFileDataResponse(requestID int, value string) (Response, error) {
	raw, err := json.Marshal(FileData{Value: value})
	if err != nil {
		return Response{}, err
	}
	return Response{RequestID: requestID, Body: raw}, nil
}
