package link

import (
	"sync/atomic"
)

// LinkMetrics contains atomic metrics for a dispenser link.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type LinkMetrics struct {
	// CommandSendCount indicates the number of commands written to the transport.
	CommandSendCount atomic.Uint64
	// MsgRecvCount indicates the number of complete messages received.
	MsgRecvCount atomic.Uint64
	// BytesRecvCount indicates the total number of inbound bytes read.
	BytesRecvCount atomic.Uint64
	// SendErrCount indicates the number of failed command writes.
	SendErrCount atomic.Uint64
	// ReadErrCount indicates the number of failed poll reads.
	ReadErrCount atomic.Uint64
}

func (m *LinkMetrics) incCommandSendCount() {
	m.CommandSendCount.Add(1)
}

func (m *LinkMetrics) incMsgRecvCount() {
	m.MsgRecvCount.Add(1)
}

func (m *LinkMetrics) addBytesRecvCount(n uint64) {
	m.BytesRecvCount.Add(n)
}

func (m *LinkMetrics) incSendErrCount() {
	m.SendErrCount.Add(1)
}

func (m *LinkMetrics) incReadErrCount() {
	m.ReadErrCount.Add(1)
}
