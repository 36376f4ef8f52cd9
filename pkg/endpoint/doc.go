// Package endpoint manages the endpoint side of a PCIe link.
//
// The Controller reacts to PERST edges from the host (Reinit on assert,
// Shutdown on deassert) and can ask a sleeping host for attention with a
// wake-down: it powers up, asserts the software wake signal and waits a
// bounded window for the host to answer with PERST. If the host never
// answers, the wake guard releases the wake signal so the host is not left
// with a stuck request.
//
// All lifecycle operations run on the controller's single action worker.
// They are mutually exclusive through the controller mutex, and the
// action queue is the only path that invokes them in production:
//
//	ctrl, _ := endpoint.New(cfg, deps)
//	ctrl.Start(ctx)
//	defer ctrl.Stop()
//	ctrl.Enqueue(action.Reinit)
package endpoint
