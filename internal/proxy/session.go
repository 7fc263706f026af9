package proxy

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sockstat/sockstat/internal/sink"
)

// Session tracks one client-to-destination relay lifecycle. The id and
// endpoints are fixed once set; the byte counters only grow; status makes a
// single transition from active to closed or error and then never changes.
type Session struct {
	id         string
	clientAddr string

	destAddr string
	destPort uint16

	bytesSent     atomic.Int64
	bytesReceived atomic.Int64

	mu        sync.Mutex
	status    sink.Status
	startTime time.Time
	endTime   time.Time
	errMsg    string
}

func newSession(clientAddr string) *Session {
	return &Session{
		id:         uuid.NewString(),
		clientAddr: clientAddr,
		status:     sink.StatusActive,
	}
}

func (s *Session) ID() string         { return s.id }
func (s *Session) ClientAddr() string { return s.clientAddr }

func (s *Session) BytesSent() int64     { return s.bytesSent.Load() }
func (s *Session) BytesReceived() int64 { return s.bytesReceived.Load() }

func (s *Session) Status() sink.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// setDestination records the requested destination once the request phase
// has parsed it.
func (s *Session) setDestination(addr string, port uint16) {
	s.destAddr = addr
	s.destPort = port
}

// beginRelay stamps the start time. Called after the destination connects,
// immediately before the sockets are handed to the relay.
func (s *Session) beginRelay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTime = time.Now()
}

// finalize moves the session to a terminal status. Only the first call wins;
// later calls are no-ops and report false.
func (s *Session) finalize(status sink.Status, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != sink.StatusActive {
		return false
	}
	s.status = status
	s.errMsg = errMsg
	s.endTime = time.Now()
	return true
}

func (s *Session) startRecord() sink.StartRecord {
	return sink.StartRecord{
		SessionID:          s.id,
		ClientAddress:      s.clientAddr,
		DestinationAddress: s.destAddr,
		DestinationPort:    s.destPort,
	}
}

func (s *Session) endRecord() sink.EndRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sink.EndRecord{
		SessionID:     s.id,
		BytesSent:     s.bytesSent.Load(),
		BytesReceived: s.bytesReceived.Load(),
		Status:        s.status,
		ErrorMessage:  s.errMsg,
	}
}
