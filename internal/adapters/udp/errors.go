package udp

import "errors"

// Sentinel errors for the receiver.
var (
	ErrAlreadyRunning = errors.New("udp receiver already running")
	ErrBind           = errors.New("udp bind failed")
)
