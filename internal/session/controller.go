// Package session holds the per-document edit state and mediates the
// message protocol with a display surface.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"spicecomment/internal/diff"
	"spicecomment/internal/kernel"
	"spicecomment/internal/protocol"
	"spicecomment/internal/tui/state"
)

// Loader extracts the comment and brief of a kernel.
type Loader interface {
	Load(ctx context.Context, path string) kernel.Snapshot
}

// Saver replaces the comment of a kernel.
type Saver interface {
	Save(ctx context.Context, path, text string) error
}

// Surface receives outbound messages. protocol.Conn satisfies it.
type Surface interface {
	Send(m protocol.Outbound) error
}

// Document is the edit state of one open kernel.
type Document struct {
	Path     string
	Brief    string
	Baseline string // last text known to be stored in the kernel
	Current  string // live edit buffer
	Editable bool
	Exists   bool
}

func (d Document) Dirty() bool { return d.Current != d.Baseline }

type Options struct {
	Strategy diff.Strategy
	NoColor  bool
	// RequestTimeout bounds a getFileData round trip. Zero means 30s.
	RequestTimeout time.Duration
}

// Controller owns one Document. Buffer edits and view changes are applied
// immediately; loads, saves and reverts are serialized and a second one
// arriving while one runs is rejected with ErrBusy.
type Controller struct {
	ID string

	loader  Loader
	saver   Saver
	surface Surface
	opts    Options
	log     zerolog.Logger

	mu   sync.Mutex // guards doc, view, disposed
	doc  Document
	view state.ViewState

	disposed bool

	opMu    sync.Mutex
	ops     sync.WaitGroup
	pending *PendingTable
}

func New(path string, loader Loader, saver Saver, surface Surface, opts Options, log zerolog.Logger) *Controller {
	if opts.Strategy == nil {
		opts.Strategy = diff.Word{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	id := uuid.NewString()
	return &Controller{
		ID:      id,
		loader:  loader,
		saver:   saver,
		surface: surface,
		opts:    opts,
		log:     log.With().Str("session", id).Str("path", path).Logger(),
		doc:     Document{Path: path},
		pending: NewPendingTable(),
	}
}

// Snapshot returns a copy of the document and view state.
func (c *Controller) Snapshot() (Document, state.ViewState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc, c.view
}

/* ---------- inbound dispatch ---------- */

// HandleMessage applies one inbound message. Long operations run in the
// background; Wait blocks until they finish.
func (c *Controller) HandleMessage(ctx context.Context, in protocol.Inbound) error {
	switch m := in.(type) {
	case protocol.Ready:
		return c.background(ctx, "Load", c.ready)
	case protocol.Edit:
		return c.report("Edit", c.Edit(m.Value))
	case protocol.UpdateComment:
		return c.background(ctx, "Save", func(ctx context.Context) error {
			return c.saveSubmitted(ctx, m.Value)
		})
	case protocol.Response:
		if err := c.pending.Resolve(m.RequestID, m.Body); err != nil {
			c.log.Warn().Err(err).Int("requestId", m.RequestID).Msg("uncorrelated response")
			return err
		}
		return nil
	case protocol.Action:
		a, ok := state.ParseAction(m.Name)
		if !ok {
			return c.report("Action", fmt.Errorf("unknown action %q: %w", m.Name, ErrActionUnavailable))
		}
		switch a {
		case state.Save:
			return c.background(ctx, "Save", c.requestSave)
		case state.Revert:
			return c.background(ctx, "Revert", c.revert)
		default:
			return c.report(a.String(), c.Do(a))
		}
	default:
		return fmt.Errorf("unhandled message %T", in)
	}
}

// background takes the operation lock now and runs fn without blocking the
// caller, so responses to fn's own requests can still be dispatched.
func (c *Controller) background(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if !c.opMu.TryLock() {
		return c.report(op, ErrBusy)
	}
	c.ops.Add(1)
	go func() {
		defer c.ops.Done()
		defer c.opMu.Unlock()
		if err := fn(ctx); err != nil {
			c.log.Debug().Err(err).Str("op", op).Msg("operation failed")
		}
	}()
	return nil
}

// Wait blocks until background operations have finished.
func (c *Controller) Wait() { c.ops.Wait() }

// run is the synchronous form of background.
func (c *Controller) run(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if !c.opMu.TryLock() {
		return c.report(op, ErrBusy)
	}
	defer c.opMu.Unlock()
	return fn(ctx)
}

func (c *Controller) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrSurfaceDisposed
	}
	return nil
}

/* ---------- operations ---------- */

// Load extracts the document and seeds the surface.
func (c *Controller) Load(ctx context.Context) error { return c.run(ctx, "Load", c.load) }

func (c *Controller) load(ctx context.Context) error {
	snap := c.loader.Load(ctx, c.doc.Path)

	c.mu.Lock()
	c.doc.Brief = snap.Brief
	c.doc.Baseline = snap.Comment
	c.doc.Current = snap.Comment
	c.doc.Editable = snap.Editable
	c.doc.Exists = snap.Exists
	c.view = state.Loaded(c.view)
	doc := c.doc
	c.mu.Unlock()

	c.sendInit(doc)
	c.sendState()

	switch {
	case snap.CommentErr != nil:
		c.status(protocol.LevelWarn, Describe("Reading the comment", snap.CommentErr))
	case !doc.Exists:
		c.status(protocol.LevelWarn, "File does not exist")
	case !doc.Editable:
		c.status(protocol.LevelWarn, "File is read-only")
	}
	c.log.Info().Bool("editable", doc.Editable).Int("bytes", len(doc.Baseline)).Msg("document loaded")
	return snap.CommentErr
}

// ready seeds a surface. Only the first ready loads from disk; later ones,
// such as a reloaded webview, get the document as it stands, unsaved edits
// included.
func (c *Controller) ready(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.view.Mode != state.Unloaded
	doc := c.doc
	c.mu.Unlock()
	if !loaded {
		return c.load(ctx)
	}
	c.log.Debug().Msg("surface ready again, resending document")
	c.sendInit(doc)
	c.sendState()
	return nil
}

func (c *Controller) sendInit(doc Document) {
	c.send(protocol.Init{
		Commnt:   doc.Baseline,
		Brief:    doc.Brief,
		Value:    doc.Current,
		Editable: doc.Editable,
		Untitled: !doc.Exists,
		Session:  c.ID,
	})
}

// Edit replaces the live buffer and recomputes dirty.
func (c *Controller) Edit(value string) error {
	c.mu.Lock()
	switch {
	case c.disposed:
		c.mu.Unlock()
		return ErrSurfaceDisposed
	case c.view.Mode != state.Comment:
		c.mu.Unlock()
		return fmt.Errorf("edit in %s mode: %w", c.view.Mode, ErrActionUnavailable)
	case !c.doc.Editable:
		c.mu.Unlock()
		return ErrNotEditable
	}
	wasDirty := c.view.Dirty
	c.doc.Current = value
	c.view = state.Edited(c.view, c.doc.Dirty())
	changed := wasDirty != c.view.Dirty
	c.mu.Unlock()

	if changed {
		c.sendState()
	}
	return nil
}

// Do applies a view action: view-brief, view-comment, diff or reset.
// Save and revert go through RequestSave and Revert.
func (c *Controller) Do(a state.Action) error {
	if a == state.Save || a == state.Revert {
		return fmt.Errorf("%s needs a context: %w", a, ErrActionUnavailable)
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrSurfaceDisposed
	}
	next, err := state.Apply(c.view, a)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.view = next
	if a == state.Reset {
		c.doc.Current = c.doc.Baseline
	}
	doc := c.doc
	c.mu.Unlock()

	switch a {
	case state.ShowDiff:
		c.sendDiff(doc.Baseline, doc.Current)
	case state.Reset:
		c.send(protocol.Buffer{Value: doc.Current})
	}
	c.sendState()
	return nil
}

// Diff computes the current diff without changing the view.
func (c *Controller) Diff() diff.Result {
	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	return c.opts.Strategy.Diff(doc.Baseline, doc.Current)
}

// RequestSave asks the surface for its buffer and saves it.
func (c *Controller) RequestSave(ctx context.Context) error { return c.run(ctx, "Save", c.requestSave) }

func (c *Controller) requestSave(ctx context.Context) error {
	if err := c.saveAllowed(); err != nil {
		return c.report("Save", err)
	}

	rctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	body, err := c.pending.Request(rctx, protocol.TypeGetFileData, func(id int) error {
		return c.surface.Send(protocol.GetFileData{RequestID: id})
	})
	if err != nil {
		return c.report("Save", err)
	}

	var fd protocol.FileData
	if err := json.Unmarshal(body, &fd); err != nil {
		return c.report("Save", fmt.Errorf("decode file data: %w", err))
	}

	c.mu.Lock()
	c.doc.Current = fd.Value
	c.view = state.Edited(c.view, c.doc.Dirty())
	c.mu.Unlock()

	return c.save(ctx, fd.Value)
}

// SaveText saves text as the new comment, the path taken by update-comment.
func (c *Controller) SaveText(ctx context.Context, text string) error {
	return c.run(ctx, "Save", func(ctx context.Context) error { return c.saveSubmitted(ctx, text) })
}

func (c *Controller) saveSubmitted(ctx context.Context, text string) error {
	c.mu.Lock()
	var err error
	switch {
	case c.view.Mode == state.Unloaded:
		err = ErrActionUnavailable
	case !c.doc.Editable:
		err = ErrNotEditable
	case c.view.Mode == state.Comment:
		c.doc.Current = text
		c.view = state.Edited(c.view, c.doc.Dirty())
	case c.view.Mode == state.Diff && text != c.doc.Current:
		// only the text the diff was shown for may be saved from here
		err = fmt.Errorf("save from diff with a different buffer: %w", ErrActionUnavailable)
	}
	mode, dirty := c.view.Mode, c.view.Dirty
	allowed := state.Allowed(c.view, state.Save)
	c.mu.Unlock()

	switch {
	case err != nil:
		return c.report("Save", err)
	case mode == state.Comment && !dirty:
		c.status(protocol.LevelInfo, "No changes to save")
		c.sendState()
		return nil
	case !allowed:
		return c.report("Save", fmt.Errorf("save from %s: %w", mode, ErrActionUnavailable))
	}
	return c.save(ctx, text)
}

func (c *Controller) saveAllowed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.doc.Editable && c.view.Mode != state.Unloaded {
		return ErrNotEditable
	}
	if !state.Allowed(c.view, state.Save) {
		return fmt.Errorf("save from %s: %w", c.view.Mode, ErrActionUnavailable)
	}
	return nil
}

// save runs the sync engine and rebases only on success.
func (c *Controller) save(ctx context.Context, text string) error {
	c.log.Info().Int("bytes", len(text)).Msg("saving comment")
	if err := c.saver.Save(ctx, c.doc.Path, text); err != nil {
		c.log.Error().Err(err).Msg("save failed")
		c.status(protocol.LevelError, Describe("Save", err))
		c.sendState()
		return err
	}

	c.mu.Lock()
	c.doc.Baseline = text
	c.view = state.Edited(state.Saved(c.view), c.doc.Dirty())
	notice := c.view.Notice
	c.mu.Unlock()

	c.send(protocol.Saved{Value: text})
	c.sendState()
	c.status(protocol.LevelInfo, notice)
	return nil
}

// Revert re-extracts the comment and brief and discards the buffer.
func (c *Controller) Revert(ctx context.Context) error { return c.run(ctx, "Revert", c.revert) }

func (c *Controller) revert(ctx context.Context) error {
	c.mu.Lock()
	allowed := state.Allowed(c.view, state.Revert)
	c.mu.Unlock()
	if !allowed {
		return c.report("Revert", ErrActionUnavailable)
	}

	snap := c.loader.Load(ctx, c.doc.Path)

	c.mu.Lock()
	c.doc.Brief = snap.Brief
	c.doc.Baseline = snap.Comment
	c.doc.Current = snap.Comment
	c.doc.Editable = snap.Editable
	c.doc.Exists = snap.Exists
	c.view = state.Reverted(c.view)
	notice := c.view.Notice
	c.mu.Unlock()

	c.send(protocol.Buffer{Value: snap.Comment})
	c.sendState()
	if snap.CommentErr != nil {
		c.status(protocol.LevelWarn, Describe("Reading the comment", snap.CommentErr))
		return snap.CommentErr
	}
	c.status(protocol.LevelInfo, notice)
	return nil
}

// ExternalChange re-reads the file after it changed on disk and tells the
// surface. Buffers are left alone; revert adopts the new text. Changes that
// match the baseline, such as our own saves, are ignored.
func (c *Controller) ExternalChange(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	// an operation of ours is writing the file; its outcome is reported
	if !c.opMu.TryLock() {
		return ErrBusy
	}
	defer c.opMu.Unlock()

	snap := c.loader.Load(ctx, c.doc.Path)
	if snap.CommentErr != nil {
		return snap.CommentErr
	}
	c.mu.Lock()
	same := snap.Comment == c.doc.Baseline
	c.mu.Unlock()
	if same {
		return nil
	}
	c.log.Info().Msg("kernel changed on disk")
	c.send(protocol.Update{Content: snap.Comment})
	c.status(protocol.LevelWarn, "The file changed on disk. Revert to load the new comment.")
	return nil
}

// Dispose fails outstanding requests and rejects further operations.
func (c *Controller) Dispose() {
	c.mu.Lock()
	c.disposed = true
	c.mu.Unlock()
	if n := c.pending.DisposeAll(); n > 0 {
		c.log.Warn().Int("pending", n).Msg("surface disposed with requests outstanding")
	}
}

/* ---------- outbound ---------- */

func (c *Controller) send(m protocol.Outbound) {
	if err := c.surface.Send(m); err != nil {
		c.log.Warn().Err(err).Msgf("send %T", m)
	}
}

func (c *Controller) sendState() {
	c.mu.Lock()
	v, editable := c.view, c.doc.Editable
	c.mu.Unlock()
	c.send(protocol.State{
		Mode:       v.Mode.String(),
		Dirty:      v.Dirty,
		Editable:   editable,
		Visibility: state.Visible(v.Mode, v.Dirty),
	})
}

func (c *Controller) sendDiff(baseline, current string) {
	r := c.opts.Strategy.Diff(baseline, current)
	c.send(protocol.Diff{
		HTML:     c.opts.Strategy.HTML(r),
		ANSI:     diff.ANSI(r, c.opts.NoColor),
		Added:    r.Added,
		Removed:  r.Removed,
		Strategy: c.opts.Strategy.Name(),
	})
}

func (c *Controller) status(level, msg string) {
	if msg == "" {
		return
	}
	c.send(protocol.Status{Level: level, Message: msg})
}

// report surfaces err as a status line and returns it.
func (c *Controller) report(op string, err error) error {
	if err == nil {
		return nil
	}
	level := protocol.LevelWarn
	if !errors.Is(err, ErrActionUnavailable) && !errors.Is(err, ErrBusy) && !errors.Is(err, ErrNotEditable) {
		level = protocol.LevelError
	}
	c.status(level, Describe(op, err))
	return err
}
