// Package resync keeps a live page established across transport failures.
//
// A page reports dropped subscriptions on its Errors channel and leaves
// recovery to its owner. A [Supervisor] is such an owner: it waits for an
// error of the current scope, optionally reconnects the transport, and calls
// Reestablish until it succeeds or its [Retryer] gives up.
//
// Basic usage:
//
//	sup := resync.New(page,
//	    resync.WithRetryer(resync.NewExponentialBackoffRetryer()),
//	    resync.WithReconnect(func(ctx context.Context) error {
//	        if conn.IsClosed() {
//	            return conn.Connect(ctx)
//	        }
//	        return nil
//	    }),
//	)
//	go func() {
//	    if err := sup.Run(ctx); err != nil {
//	        log.Error("Page is not recovering", "error", err.Error())
//	    }
//	}()
package resync
