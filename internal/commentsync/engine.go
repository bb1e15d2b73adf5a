// Package commentsync replaces the comment area of a kernel. commnt offers
// no atomic replace, so a save is a delete followed by an append, with the
// original retained until the append succeeds.
package commentsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"spicecomment/internal/journal"
	"spicecomment/internal/kernel"
	"spicecomment/internal/toolrun"
)

// Journal retains original comments while a save is in flight.
type Journal interface {
	Retain(ctx context.Context, path, comment string) (int64, error)
	Release(ctx context.Context, id int64) error
	Strand(ctx context.Context, id int64, reason string) error
	Get(ctx context.Context, id int64) (journal.Artifact, error)
}

// Engine is stateless across calls. The caller serializes saves per file.
type Engine struct {
	runner  toolrun.Runner
	journal Journal // optional
	log     zerolog.Logger
}

func NewEngine(runner toolrun.Runner, j Journal, log zerolog.Logger) *Engine {
	return &Engine{runner: runner, journal: j, log: log}
}

// Save replaces the comment of path with text.
//
// A nil return means the kernel's comment now equals text. Failures before
// the delete leave the kernel untouched. A failure after the delete returns
// a *DataLossError matching ErrSaveDataLossRisk; the original is reattached
// automatically when possible and otherwise left stranded in the journal.
func (e *Engine) Save(ctx context.Context, path, text string) error {
	if err := e.runner.Check(kernel.ToolCommnt); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	log := e.log.With().Str("path", abs).Logger()

	return toolrun.WithScratchDir(func(dir string) error {
		newFile := filepath.Join(dir, "new.txt")
		if err := os.WriteFile(newFile, []byte(text), 0o600); err != nil {
			return fmt.Errorf("write new comment: %w", err)
		}

		origFile := filepath.Join(dir, "original.txt")
		original, err := e.export(ctx, abs, origFile)
		if err != nil {
			return fmt.Errorf("export original comment: %w", err)
		}

		id, err := e.retain(ctx, abs, original)
		if err != nil {
			return err
		}

		if _, err := e.runner.Run(ctx, kernel.ToolCommnt, []string{"-d", abs}, ""); err != nil {
			// a killed delete may already have removed the comment
			if errors.Is(err, toolrun.ErrToolTimedOut) || ctx.Err() != nil {
				return e.interrupted(context.WithoutCancel(ctx), log, abs, id, err)
			}
			e.release(ctx, id)
			log.Warn().Err(err).Msg("delete comment failed, nothing changed")
			return fmt.Errorf("delete comment: %w", err)
		}
		log.Info().Msg("comment deleted")

		// from here on the kernel has no comment; finish even if the caller
		// goes away, bounded by the tool timeout
		ctx := context.WithoutCancel(ctx)

		// an empty comment is the delete alone
		if text != "" {
			if _, err := e.runner.Run(ctx, kernel.ToolCommnt, []string{"-a", abs, newFile}, ""); err != nil {
				return e.compensate(ctx, log, abs, original, origFile, id, err)
			}
		}
		log.Info().Int("bytes", len(text)).Msg("comment saved")
		e.release(ctx, id)
		return nil
	})
}

// compensate reattaches the original after a failed append.
func (e *Engine) compensate(ctx context.Context, log zerolog.Logger, abs, original, origFile string, id int64, cause error) error {
	dl := &DataLossError{Path: abs, Cause: cause, ArtifactID: id}
	log.Error().Err(cause).Msg("append failed after delete, reattaching original")

	if original == "" {
		// nothing was there to begin with
		dl.Restored = true
	} else if _, err := e.runner.Run(ctx, kernel.ToolCommnt, []string{"-a", abs, origFile}, ""); err != nil {
		dl.RestoreErr = err
	} else {
		dl.Restored = true
	}

	if dl.Restored {
		log.Warn().Msg("original comment reattached")
		e.release(ctx, id)
		dl.ArtifactID = 0
		return dl
	}

	log.Error().Err(dl.RestoreErr).Int64("artifact", id).Msg("original comment lost from kernel")
	if e.journal != nil && id != 0 {
		if err := e.journal.Strand(ctx, id, cause.Error()); err != nil {
			log.Error().Err(err).Msg("mark artifact stranded")
		}
	}
	return dl
}

// interrupted keeps the artifact of a delete whose outcome is unknown.
func (e *Engine) interrupted(ctx context.Context, log zerolog.Logger, abs string, id int64, cause error) error {
	log.Error().Err(cause).Int64("artifact", id).Msg("delete interrupted, comment may be gone")
	if e.journal != nil && id != 0 {
		if err := e.journal.Strand(ctx, id, "delete interrupted: "+cause.Error()); err != nil {
			log.Error().Err(err).Msg("mark artifact stranded")
		}
	}
	return &DeleteInterruptedError{Path: abs, Cause: cause, ArtifactID: id}
}

// Reattach writes a retained artifact back into its kernel through a full
// save and releases it on success.
func (e *Engine) Reattach(ctx context.Context, id int64) error {
	if e.journal == nil {
		return errors.New("no journal configured")
	}
	a, err := e.journal.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Save(ctx, a.Path, a.Comment); err != nil {
		return err
	}
	e.release(ctx, id)
	return nil
}

func (e *Engine) export(ctx context.Context, abs, file string) (string, error) {
	if _, err := e.runner.Run(ctx, kernel.ToolCommnt, []string{"-e", abs, file}, ""); err != nil {
		return "", err
	}
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *Engine) retain(ctx context.Context, abs, original string) (int64, error) {
	if e.journal == nil {
		return 0, nil
	}
	id, err := e.journal.Retain(ctx, abs, original)
	if err != nil {
		return 0, fmt.Errorf("retain original comment: %w", err)
	}
	return id, nil
}

func (e *Engine) release(ctx context.Context, id int64) {
	if e.journal == nil || id == 0 {
		return
	}
	if err := e.journal.Release(ctx, id); err != nil {
		e.log.Warn().Err(err).Int64("artifact", id).Msg("release artifact")
	}
}
