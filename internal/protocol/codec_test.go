package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spicecomment/internal/tui/state"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Inbound
	}{
		{"ready", `{"type":"ready"}`, Ready{}},
		{"update-comment", `{"type":"update-comment","body":{"value":"new text"}}`, UpdateComment{Value: "new text"}},
		{"edit", `{"type":"edit","body":{"value":"abc"}}`, Edit{Value: "abc"}},
		{"action", `{"type":"action","body":{"name":"diff"}}`, Action{Name: "diff"}},
		{"response", `{"type":"response","requestId":7,"body":{"value":"x"}}`,
			Response{RequestID: 7, Body: json.RawMessage(`{"value":"x"}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeInbound_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{nope`},
		{"unknown type", `{"type":"explode"}`},
		{"outbound type inbound", `{"type":"init"}`},
		{"bad body", `{"type":"edit","body":{"value":3}}`},
		{"response without id", `{"type":"response","body":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tt.in))
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.in, de.Raw)
		})
	}

	_, err := DecodeInbound([]byte(`{"type":"explode"}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestEncodeOutbound(t *testing.T) {
	data, err := EncodeOutbound(Init{Commnt: "c", Brief: "b", Value: "c", Editable: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"init","body":{"commnt":"c","brief":"b","value":"c","editable":true}}`, string(data))

	data, err = EncodeOutbound(GetFileData{RequestID: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"getFileData","requestId":3,"body":{}}`, string(data))

	data, err = EncodeOutbound(State{Mode: "comment", Dirty: true, Editable: true, Visibility: state.Visible(state.Comment, true)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"save":true`)
}

func TestOutboundRoundTripThroughSurfaceDecoder(t *testing.T) {
	msgs := []Outbound{
		Init{Commnt: "c", Brief: "b", Value: "c", Editable: true, Session: "s-1"},
		Update{Content: "changed"},
		GetFileData{RequestID: 9},
		Diff{HTML: "<p/>", ANSI: "x", Added: 1, Removed: 2, Strategy: "word"},
		Status{Level: LevelWarn, Message: "careful"},
		Saved{Value: "v"},
		Buffer{Value: "reset"},
	}
	for _, m := range msgs {
		data, err := EncodeOutbound(m)
		require.NoError(t, err)
		got, err := DecodeOutbound(data)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestFileDataResponse(t *testing.T) {
	resp, err := NewFileDataResponse(4, "buffer")
	require.NoError(t, err)

	data, err := EncodeInbound(resp)
	require.NoError(t, err)
	got, err := DecodeInbound(data)
	require.NoError(t, err)

	r, ok := got.(Response)
	require.True(t, ok)
	assert.Equal(t, 4, r.RequestID)

	var fd FileData
	require.NoError(t, json.Unmarshal(r.Body, &fd))
	assert.Equal(t, "buffer", fd.Value)
}

func TestLineConn(t *testing.T) {
	in := strings.Join([]string{
		`{"type":"ready"}`,
		``,
		`{"type":"bogus"}`,
		`{"type":"edit","body":{"value":"hi"}}`,
	}, "\n")
	var out bytes.Buffer
	c := NewLineConn(strings.NewReader(in), &out, nil)

	m, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, Ready{}, m)

	_, err = c.Recv()
	var de *DecodeError
	require.True(t, errors.As(err, &de), "decode errors keep the connection")

	m, err = c.Recv()
	require.NoError(t, err)
	assert.Equal(t, Edit{Value: "hi"}, m)

	_, err = c.Recv()
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, c.Send(Status{Level: LevelInfo, Message: "ok"}))
	require.NoError(t, c.Send(Saved{Value: "v"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"type":"status","body":{"level":"info","message":"ok"}}`, lines[0])
	assert.NoError(t, c.Close())
}
