package session

import (
	"errors"
	"fmt"

	"github.com/rickgao/channel-console/internal/model"
)

// Operator-facing messages.
const (
	MsgCreating       = "Creating connection..."
	MsgLoading        = "Loading connection..."
	MsgConnected      = "Connected"
	MsgQRTimeout      = "Timed out waiting for the QR code. Generate a new one to retry."
	MsgRemoteError    = "The connection reported an error. Generate a new QR code to retry."
	MsgSocketCooldown = "Lost the realtime connection to the server. Retrying shortly."
)

var errUnsupportedChannel = errors.New("only unofficial WhatsApp connections can be paired")

// Transition computes the next state for ev. It never blocks and performs no
// I/O; every effect is returned as a Command.
func Transition(s State, ev Event) (State, []Command) {
	s = s.Clone()

	switch ev := ev.(type) {
	case StartRequested:
		return start(s, ev)
	case ProxySelected:
		s.SelectedProxyID = clonePtr(ev.ProxyID)
		return s, nil
	case GenerateQRRequested:
		return generateQR(s, ev.Manual, nil)
	case CancelRequested:
		return cancel(s)
	case ReconnectRequested:
		return reconnect(s, ev)
	case ConnectionCreated:
		return connectionCreated(s, ev)
	case ProxyUpdated:
		return proxyUpdated(s, ev)
	case ConnectResult:
		return connectResult(s, ev)
	case ConnectionLoaded:
		return connectionLoaded(s, ev)
	case QRReceived:
		return qrReceived(s, ev)
	case StatusChanged:
		return statusChanged(s, ev)
	case ConnectionErrored:
		return connectionErrored(s, ev)
	case SocketCooldown:
		return socketCooldown(s, ev)
	case QRTimedOut:
		return qrTimedOut(s)
	case AutoCloseElapsed:
		if ev.Attempt != s.Attempt || s.Status != StatusConnected {
			return s, nil
		}
		s.QRPayload = nil
		return s, []Command{ClosePresenter{}}
	}

	return s, nil
}

func start(s State, ev StartRequested) (State, []Command) {
	if s.Status != StatusIdle {
		return s, nil
	}

	s.QRPayload = nil
	s.Message = ""
	s.Warning = ""
	s.LastError = KindNone
	s.Attempt++

	proxy := s.SelectedProxyID
	if ev.ProxyID != nil {
		proxy = clonePtr(ev.ProxyID)
		s.SelectedProxyID = clonePtr(ev.ProxyID)
	}

	if s.ActiveConnectionID == nil {
		s.Status = StatusCreating
		s.Message = MsgCreating
		return s, []Command{CreateConnection{Attempt: s.Attempt, ProxyID: clonePtr(proxy)}}
	}

	if !sameID(proxy, s.BoundProxyID) {
		s.Status = StatusConnecting
		s.ProxyUpdatePending = true
		return s, []Command{UpdateProxy{
			Attempt:      s.Attempt,
			ConnectionID: *s.ActiveConnectionID,
			ProxyID:      clonePtr(proxy),
		}}
	}

	return generateQR(s, false, nil)
}

// generateQR issues one connect request. Guarded: a request already in
// flight (or a pending proxy update that will chain into one) makes it a
// no-op.
func generateQR(s State, manual bool, cmds []Command) (State, []Command) {
	if s.QRGenerationInProgress || s.ProxyUpdatePending {
		return s, cmds
	}
	if s.ActiveConnectionID == nil || s.Status == StatusConnected {
		return s, cmds
	}

	if manual && s.Status == StatusError {
		s.RetryCount++
	}

	s.QRGenerationInProgress = true
	s.Status = StatusConnecting
	s.QRPayload = nil
	s.AwaitingManualQR = true
	s.Message = ""
	s.LastError = KindNone
	s.Generation++

	return s, append(cmds,
		ArmTimeout{},
		RequestConnect{
			Attempt:      s.Attempt,
			Generation:   s.Generation,
			ConnectionID: *s.ActiveConnectionID,
			Reconnect:    s.ReconnectMode,
		},
	)
}

func cancel(s State) (State, []Command) {
	cmds := []Command{DisarmTimeout{}}
	if s.ActiveConnectionID != nil && s.Status != StatusConnected {
		cmds = append(cmds, Cleanup{
			ConnectionID:   *s.ActiveConnectionID,
			DisconnectOnly: s.ReconnectMode,
		})
	}
	if s.QRPayload != nil {
		cmds = append(cmds, ClosePresenter{})
	}

	next := NewState()
	next.SelectedProxyID = s.SelectedProxyID
	next.Attempt = s.Attempt + 1
	next.Generation = s.Generation
	return next, cmds
}

func reconnect(s State, ev ReconnectRequested) (State, []Command) {
	if s.Status != StatusIdle || s.ActiveConnectionID != nil {
		return s, nil
	}

	s.Attempt++
	s.Message = MsgLoading
	s.LastError = KindNone
	return s, []Command{LoadConnection{Attempt: s.Attempt, ConnectionID: ev.ConnectionID}}
}

func connectionCreated(s State, ev ConnectionCreated) (State, []Command) {
	if ev.Attempt != s.Attempt || s.Status != StatusCreating {
		// The session moved on while the create was in flight; the record
		// it produced belongs to nobody.
		if ev.Err == nil && ev.Connection != nil {
			return s, []Command{Cleanup{ConnectionID: ev.Connection.ID}}
		}
		return s, nil
	}

	if ev.Err != nil {
		s.Status = StatusIdle
		s.Message = ev.Err.Error()
		s.LastError = CreationFailure
		return s, []Command{Report{Err: &Error{Kind: CreationFailure, Err: ev.Err}}}
	}

	id := ev.Connection.ID
	s.ActiveConnectionID = &id
	s.BoundProxyID = clonePtr(ev.Connection.ProxyServerID)
	s.RemoteStatus = ev.Connection.Status
	s.Message = ""

	return generateQR(s, false, []Command{InvalidateConnections{}})
}

func proxyUpdated(s State, ev ProxyUpdated) (State, []Command) {
	if ev.Attempt != s.Attempt || !s.ProxyUpdatePending {
		return s, nil
	}
	s.ProxyUpdatePending = false

	var cmds []Command
	if ev.Err != nil {
		s.Warning = fmt.Sprintf("Proxy update failed: %v", ev.Err)
		cmds = append(cmds, Report{Err: &Error{
			Kind:         ProxyUpdateFailure,
			ConnectionID: s.ActiveID(),
			Err:          ev.Err,
		}})
	} else {
		s.BoundProxyID = clonePtr(ev.ProxyID)
		cmds = append(cmds, InvalidateConnections{})
	}

	return generateQR(s, false, cmds)
}

func connectResult(s State, ev ConnectResult) (State, []Command) {
	if ev.Attempt != s.Attempt || ev.Generation != s.Generation || !s.QRGenerationInProgress {
		return s, nil
	}

	if ev.Err != nil {
		s.QRGenerationInProgress = false
		s.AwaitingManualQR = false
		s.Status = StatusError
		s.Message = ev.Err.Error()
		s.LastError = ConnectRequestFailure
		return s, []Command{
			DisarmTimeout{},
			Report{Err: &Error{Kind: ConnectRequestFailure, ConnectionID: s.ActiveID(), Err: ev.Err}},
		}
	}

	if s.Status == StatusConnecting {
		s.Status = StatusAwaitingQR
	}
	return s, nil
}

func connectionLoaded(s State, ev ConnectionLoaded) (State, []Command) {
	if ev.Attempt != s.Attempt || s.Status != StatusIdle || s.ActiveConnectionID != nil {
		return s, nil
	}

	err := ev.Err
	if err == nil && ev.Connection.ChannelType != model.ChannelWhatsAppUnofficial {
		err = fmt.Errorf("%w: %s", errUnsupportedChannel, ev.Connection.ChannelType)
	}
	if err != nil {
		s.Message = err.Error()
		s.LastError = LookupFailure
		var id int64
		if ev.Connection != nil {
			id = ev.Connection.ID
		}
		return s, []Command{Report{Err: &Error{Kind: LookupFailure, ConnectionID: id, Err: err}}}
	}

	id := ev.Connection.ID
	s.ActiveConnectionID = &id
	s.SelectedProxyID = clonePtr(ev.Connection.ProxyServerID)
	s.BoundProxyID = clonePtr(ev.Connection.ProxyServerID)
	s.RemoteStatus = ev.Connection.Status
	s.ReconnectMode = true
	s.Message = ""
	return s, nil
}

func qrReceived(s State, ev QRReceived) (State, []Command) {
	if !isActive(s, ev.ConnectionID) {
		return s, nil
	}
	switch s.Status {
	case StatusConnecting, StatusAwaitingQR, StatusQRDisplayed:
	default:
		return s, nil
	}

	qr := ev.QRCode
	s.QRPayload = &qr
	s.Status = StatusQRDisplayed
	s.RemoteStatus = model.StatusQRCode
	s.AwaitingManualQR = false
	s.QRGenerationInProgress = false
	s.RetryCount = 0
	s.Message = ""
	return s, []Command{DisarmTimeout{}, ShowQR{Payload: qr}}
}

func statusChanged(s State, ev StatusChanged) (State, []Command) {
	if !isActive(s, ev.ConnectionID) {
		return s, nil
	}
	s.RemoteStatus = ev.Status

	switch ev.Status {
	case model.StatusConnected:
		if s.Status == StatusConnected {
			return s, nil
		}
		s.Status = StatusConnected
		s.AwaitingManualQR = false
		s.QRGenerationInProgress = false
		s.ProxyUpdatePending = false
		s.RetryCount = 0
		s.Message = MsgConnected
		s.LastError = KindNone
		return s, []Command{
			DisarmTimeout{},
			InvalidateConnections{},
			ScheduleAutoClose{Attempt: s.Attempt},
		}

	case model.StatusError:
		s = fail(s, MsgRemoteError, BackendConnectionError)
		return s, []Command{
			DisarmTimeout{},
			Report{Err: &Error{Kind: BackendConnectionError, ConnectionID: ev.ConnectionID, Err: errors.New("backend reported error status")}},
		}

	case model.StatusDisconnected:
		return s, []Command{InvalidateConnections{}}
	}

	return s, nil
}

func connectionErrored(s State, ev ConnectionErrored) (State, []Command) {
	if !isActive(s, ev.ConnectionID) {
		return s, nil
	}

	s = fail(s, ev.Message, BackendConnectionError)
	return s, []Command{
		DisarmTimeout{},
		Report{Err: &Error{Kind: BackendConnectionError, ConnectionID: ev.ConnectionID, Err: errors.New(ev.Message)}},
	}
}

func socketCooldown(s State, ev SocketCooldown) (State, []Command) {
	if !ev.Active {
		if s.LastError == SocketDisconnected {
			s.Message = ""
			s.LastError = KindNone
		}
		return s, nil
	}

	s.Message = MsgSocketCooldown
	s.LastError = SocketDisconnected
	return s, []Command{Report{Err: &Error{
		Kind:         SocketDisconnected,
		ConnectionID: s.ActiveID(),
		Err:          errors.New("realtime reconnect attempts exhausted"),
	}}}
}

func qrTimedOut(s State) (State, []Command) {
	if s.Status != StatusConnecting && s.Status != StatusAwaitingQR {
		return s, nil
	}
	if s.QRPayload != nil {
		return s, nil
	}

	s = fail(s, MsgQRTimeout, QRTimeout)
	return s, []Command{Report{Err: &Error{
		Kind:         QRTimeout,
		ConnectionID: s.ActiveID(),
		Err:          errors.New("no QR code received"),
	}}}
}

// fail moves to the error status and clears the in-flight flags.
func fail(s State, msg string, kind ErrorKind) State {
	s.Status = StatusError
	s.AwaitingManualQR = false
	s.QRGenerationInProgress = false
	s.Message = msg
	s.LastError = kind
	return s
}
