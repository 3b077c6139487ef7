package live

import (
	"github.com/junaikey/livecache/pkg/constants"
	"github.com/junaikey/livecache/pkg/logger"
	"github.com/junaikey/livecache/pkg/models"
	"github.com/junaikey/livecache/pkg/reconcile"
)

// Metrics is what a page reports. *metrics.PageMetrics implements it.
type Metrics interface {
	reconcile.Observer
	ObserveScope(err error)
	ObserveSubscriptionError()
	ObserveMutation(verb string, err error)
	SetCacheSize(n int)
}

type Options struct {
	// Optimistic reconciles successful mutation results into the cache right
	// away instead of waiting for the change event.
	Optimistic bool
	Logger     logger.Logger
	Metrics    Metrics
	// Recorder receives an action record for every successful mutation.
	Recorder ActionRecorder
	// QueueSize is the initial capacity of the run-loop queue.
	QueueSize int
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.QueueSize <= 0 {
		o.QueueSize = constants.DefaultQueueSize
	}
	return o
}

type nopMetrics struct{}

func (nopMetrics) ObserveEvent(models.Action, reconcile.Outcome) {}
func (nopMetrics) ObserveScope(error)                             {}
func (nopMetrics) ObserveSubscriptionError()                      {}
func (nopMetrics) ObserveMutation(string, error)                  {}
func (nopMetrics) SetCacheSize(int)                               {}
