package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rickgao/channel-console/internal/session"
)

var (
	errCancelled   = errors.New("pairing cancelled")
	errInterrupted = errors.New("interrupted before cleanup finished")
)

// controller is the part of session.Manager the supervisor drives.
type controller interface {
	Start(proxyID *int64)
	ReconnectExisting(id int64)
	GenerateQR(manual bool)
	Cancel()
}

// supervisor runs one pairing to completion.
type supervisor struct {
	ctrl        controller
	render      func(session.State)
	out         io.Writer
	reconnectID int64
	proxyID     *int64
}

// run starts the pairing and returns nil once the connection is paired and
// the QR code closed, an error when the connection could not be created,
// errCancelled after an interrupt has been cleaned up,
// or errInterrupted on a second interrupt.
func (s *supervisor) run(ctx context.Context, states <-chan session.State, interrupts <-chan struct{}) error {
	loaded := s.reconnectID == 0
	if loaded {
		s.ctrl.Start(s.proxyID)
	} else {
		s.ctrl.ReconnectExisting(s.reconnectID)
	}

	cancelling := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-interrupts:
			if cancelling {
				return errInterrupted
			}
			cancelling = true
			if s.reconnectID != 0 {
				fmt.Fprintf(s.out, "Cancelling, disconnecting connection %d...\n", s.reconnectID)
			} else {
				fmt.Fprintln(s.out, "Cancelling, removing the pending connection...")
			}
			s.ctrl.Cancel()

		case st := <-states:
			if s.render != nil {
				s.render(st)
			}

			switch {
			case cancelling:
				if st.Status == session.StatusIdle && st.ActiveConnectionID == nil {
					return errCancelled
				}

			case !loaded:
				if st.LastError == session.LookupFailure {
					return fmt.Errorf("load connection %d: %s", s.reconnectID, st.Message)
				}
				if st.ActiveID() == s.reconnectID {
					loaded = true
					s.ctrl.Start(s.proxyID)
				}

			case st.Status == session.StatusIdle && st.LastError == session.CreationFailure:
				return fmt.Errorf("create connection: %s", st.Message)

			case st.Status == session.StatusConnected && st.QRPayload == nil:
				fmt.Fprintf(s.out, "Connection %d paired.\n", st.ActiveID())
				return nil
			}
		}
	}
}

// readKeys maps operator input lines to session actions until r is
// exhausted: r requests a new QR code, q cancels.
func readKeys(r io.Reader, ctrl controller, interrupts chan<- struct{}) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "r":
			ctrl.GenerateQR(true)
		case "q":
			select {
			case interrupts <- struct{}{}:
			default:
			}
		}
	}
}
