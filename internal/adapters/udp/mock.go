package udp

import (
	"net"
	"sync"
	"time"
)

// MockPacket is a datagram served by MockSocket.
type MockPacket struct {
	Data []byte
	Addr *net.UDPAddr
}

// MockSocket implements Socket for tests. Once its packets are exhausted it
// reports read timeouts until closed.
type MockSocket struct {
	mu           sync.Mutex
	packets      []MockPacket
	readIndex    int
	closed       bool
	readBuffer   int
	readError    error
	localAddress *net.UDPAddr
	deadlines    int
}

// NewMockSocket creates a socket that serves packets in order.
func NewMockSocket(packets ...MockPacket) *MockSocket {
	return &MockSocket{
		packets:      packets,
		localAddress: &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 41000},
	}
}

// FailNextRead makes the next ReadFromUDP return err.
func (m *MockSocket) FailNextRead(err error) {
	m.mu.Lock()
	m.readError = err
	m.mu.Unlock()
}

// Push appends packets to serve.
func (m *MockSocket) Push(packets ...MockPacket) {
	m.mu.Lock()
	m.packets = append(m.packets, packets...)
	m.mu.Unlock()
}

// ReadFromUDP implements Socket.
func (m *MockSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, nil, net.ErrClosed
	}
	if err := m.readError; err != nil {
		m.readError = nil
		m.mu.Unlock()
		return 0, nil, err
	}
	if m.readIndex >= len(m.packets) {
		m.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: timeoutError{}}
	}
	pkt := m.packets[m.readIndex]
	m.readIndex++
	m.mu.Unlock()
	return copy(b, pkt.Data), pkt.Addr, nil
}

// SetReadBuffer implements Socket.
func (m *MockSocket) SetReadBuffer(bytes int) error {
	m.mu.Lock()
	m.readBuffer = bytes
	m.mu.Unlock()
	return nil
}

// SetReadDeadline implements Socket.
func (m *MockSocket) SetReadDeadline(time.Time) error {
	m.mu.Lock()
	m.deadlines++
	m.mu.Unlock()
	return nil
}

// Close implements Socket.
func (m *MockSocket) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// LocalAddr implements Socket.
func (m *MockSocket) LocalAddr() net.Addr { return m.localAddress }

// Closed reports whether Close was called.
func (m *MockSocket) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Served returns how many packets were read.
func (m *MockSocket) Served() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readIndex
}

// ReadBuffer returns the value passed to SetReadBuffer.
func (m *MockSocket) ReadBuffer() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readBuffer
}

// MockSocketFactory returns a fixed socket.
type MockSocketFactory struct {
	Socket *MockSocket
	Err    error

	mu    sync.Mutex
	calls []string
}

// ListenUDP implements SocketFactory.
func (f *MockSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (Socket, error) {
	f.mu.Lock()
	f.calls = append(f.calls, network+" "+laddr.String())
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Socket, nil
}

// Calls returns the recorded ListenUDP calls.
func (f *MockSocketFactory) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
