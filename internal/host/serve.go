// Package host binds edit sessions to display surface connections.
package host

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spicecomment/internal/protocol"
	"spicecomment/internal/session"
)

// WatchDebounce coalesces the burst of writes a single commnt run makes.
const WatchDebounce = 300 * time.Millisecond

// Deps are shared by every session a host creates.
type Deps struct {
	Loader  session.Loader
	Saver   session.Saver
	Options session.Options
	Watch   bool
	Log     zerolog.Logger

	// Registry, when set, tracks live sessions.
	Registry *Registry
}

// Serve runs one session for path over conn until the surface goes away or
// ctx is done. The connection is closed on return.
func Serve(ctx context.Context, conn protocol.Conn, path string, deps Deps) error {
	ctrl := session.New(path, deps.Loader, deps.Saver, conn, deps.Options, deps.Log)
	log := deps.Log.With().Str("session", ctrl.ID).Str("path", path).Logger()

	if deps.Registry != nil {
		deps.Registry.add(ctrl, path)
		defer deps.Registry.remove(ctrl.ID)
	}

	if deps.Watch {
		w, err := Watch(path, WatchDebounce, func() {
			if err := ctrl.ExternalChange(ctx); err != nil && !errors.Is(err, session.ErrBusy) {
				log.Debug().Err(err).Msg("external change")
			}
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("file watch unavailable")
		} else {
			defer func() { _ = w.Close() }()
		}
	}

	msgs := make(chan protocol.Inbound)
	recvErr := make(chan error, 1)
	var once sync.Once
	closeConn := func() { once.Do(func() { _ = conn.Close() }) }
	defer closeConn()

	go func() {
		for {
			m, err := conn.Recv()
			if err != nil {
				var de *protocol.DecodeError
				if errors.As(err, &de) {
					log.Warn().Err(err).Msg("dropping malformed message")
					continue
				}
				recvErr <- err
				return
			}
			select {
			case msgs <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info().Msg("session started")
	defer func() {
		ctrl.Dispose()
		ctrl.Wait()
		log.Info().Msg("session ended")
	}()

	for {
		select {
		case <-ctx.Done():
			closeConn()
			return ctx.Err()
		case err := <-recvErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case m := <-msgs:
			if err := ctrl.HandleMessage(ctx, m); err != nil {
				log.Debug().Err(err).Msgf("handle %T", m)
			}
		}
	}
}
