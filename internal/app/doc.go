// Package app runs the client side of the user service demo.
//
// A Workflow issues a list of calls under a single root span
// (client-root-ops), one child span per call (client-req1..N). The server
// spans join that trace through the propagated traceparent header.
//
// Example Usage:
//
//	wf := app.NewWorkflow(client, tracer, logger)
//	results, err := wf.Run(ctx, app.DefaultCalls())
//	if err != nil {
//	    logger.Warn("some calls failed", zap.Error(err))
//	}
package app
