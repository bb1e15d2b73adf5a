// Package protocol defines the messages exchanged between an edit session and
// its display surface, one JSON envelope per message.
package protocol

import (
	"encoding/json"

	"spicecomment/internal/tui/state"
)

// Wire type names.
const (
	TypeReady         = "ready"
	TypeUpdateComment = "update-comment"
	TypeResponse      = "response"
	TypeEdit          = "edit"
	TypeAction        = "action"

	TypeInit        = "init"
	TypeUpdate      = "update"
	TypeGetFileData = "getFileData"
	TypeState       = "state"
	TypeDiff        = "diff"
	TypeStatus      = "status"
	TypeSaved       = "saved"
	TypeBuffer      = "buffer"
)

// Inbound is a surface-to-session message. The set is closed: only the
// types in this file implement it.
type Inbound interface {
	inboundType() string
}

// Surface finished initializing.
type Ready struct{}

// UpdateComment submits the edit buffer for saving.
type UpdateComment struct {
	Value string `json:"value"`
}

// Response answers a pending request by id.
type Response struct {
	RequestID int             `json:"-"`
	Body      json.RawMessage `json:"-"`
}

// Edit reports a buffer change.
type Edit struct {
	Value string `json:"value"`
}

type Action struct {
	Name string `json:"name"`
}

func (Ready) inboundType() string         { return TypeReady }
func (UpdateComment) inboundType() string { return TypeUpdateComment }
func (Response) inboundType() string      { return TypeResponse }
func (Edit) inboundType() string          { return TypeEdit }
func (Action) inboundType() string        { return TypeAction }

// Outbound is a session-to-surface message. The set is closed.
type Outbound interface {
	outboundType() string
}

type Init struct {
	Commnt   string `json:"commnt"`
	Brief    string `json:"brief"`
	Value    string `json:"value"`
	Editable bool   `json:"editable"`
	Untitled bool   `json:"untitled,omitempty"`
	Session  string `json:"session,omitempty"`
}

// Update reports that the file changed on disk.
type Update struct {
	Content string `json:"content"`
}

// GetFileData asks the surface for its current edit buffer.
type GetFileData struct {
	RequestID int `json:"-"`
}

// FileData is the body of a Response to GetFileData.
type FileData struct {
	Value string `json:"value"`
}

type State struct {
	Mode       string           `json:"mode"`
	Dirty      bool             `json:"dirty"`
	Editable   bool             `json:"editable"`
	Visibility state.Visibility `json:"visibility"`
}

type Diff struct {
	HTML     string `json:"html"`
	ANSI     string `json:"ansi"`
	Added    int    `json:"added"`
	Removed  int    `json:"removed"`
	Strategy string `json:"strategy"`
}

// Status levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

type Status struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Saved reports the new baseline after a successful save.
type Saved struct {
	Value string `json:"value"`
}

// Buffer replaces the surface's edit buffer after a reset or revert.
type Buffer struct {
	Value string `json:"value"`
}

func (Init) outboundType() string        { return TypeInit }
func (Update) outboundType() string      { return TypeUpdate }
func (GetFileData) outboundType() string { return TypeGetFileData }
func (State) outboundType() string       { return TypeState }
func (Diff) outboundType() string        { return TypeDiff }
func (Status) outboundType() string      { return TypeStatus }
func (Saved) outboundType() string       { return TypeSaved }
func (Buffer) outboundType() string      { return TypeBuffer }
