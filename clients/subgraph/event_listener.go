package subgraph

import "time"

type EventListener interface {
	OnResponse(op string, status int, took time.Duration)
	OnReorgDetected(blockNumber uint64)
}

type SelectiveListener struct {
	OnResponseCb      func(op string, status int, took time.Duration)
	OnReorgDetectedCb func(blockNumber uint64)
}

func (l *SelectiveListener) OnResponse(op string, status int, took time.Duration) {
	if l.OnResponseCb != nil {
		l.OnResponseCb(op, status, took)
	}
}

func (l *SelectiveListener) OnReorgDetected(blockNumber uint64) {
	if l.OnReorgDetectedCb != nil {
		l.OnReorgDetectedCb(blockNumber)
	}
}
