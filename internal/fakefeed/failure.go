package fakefeed

import (
	"time"

	"github.com/junaikey/livecache/internal/rand"
)

// FailureType is a kind of misbehavior the server can be told to inject.
type FailureType string

const (
	// FailureRequestDelay sleeps before handling the request.
	FailureRequestDelay FailureType = "request_delay"
	// FailureRPCError answers the request with an RPC error instead of handling it.
	FailureRPCError FailureType = "rpc_error"
	// FailureDropConnection closes the requesting connection without answering.
	FailureDropConnection FailureType = "drop_connection"
	// FailureCorruptedNotification makes the notifications caused by the
	// request carry a payload that does not decode into an entity.
	FailureCorruptedNotification FailureType = "corrupted_notification"
)

// FailureConfig says when and how to misbehave.
type FailureConfig struct {
	Type FailureType
	// Method restricts the failure to one RPC method. Empty matches all.
	Method string
	// Probability of triggering, from 0 to 1.
	Probability float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
	// Message is the RPC error message for FailureRPCError.
	Message string
}

func (f FailureConfig) matches(method string) bool {
	return (f.Method == "" || f.Method == method) && shouldTrigger(f.Probability)
}

func shouldTrigger(probability float64) bool {
	if probability <= 0 {
		return false
	}
	if probability >= 1 {
		return true
	}
	return rand.Float64() < probability
}

func randomDuration(dMin, dMax time.Duration) time.Duration {
	if dMin >= dMax {
		return dMin
	}
	return dMin + time.Duration(rand.Float64()*float64(dMax-dMin))
}
