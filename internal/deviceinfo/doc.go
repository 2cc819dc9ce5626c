// Package deviceinfo resolves device capabilities and caches them in a
// shared property snapshot.
//
// An Engine runs resolution passes over a Platform. Each pass runs a set
// of probes; sync probes finish inline, async probes run on goroutines and
// AsyncUI probes run on the single goroutine owned by a Dispatcher. A
// Coordinator counts probe completions and flips readiness once every
// probe of the pass has reported, successfully or not.
//
// Probes fail soft. A missing capability, a denied permission, a panic or
// a timeout is recorded in the pass report and leaves the affected
// properties at their defaults; it never blocks readiness.
//
// Usage:
//
//	d := deviceinfo.NewLoopDispatcher(64)
//	go d.Run(ctx)
//
//	eng, err := deviceinfo.NewEngine(deviceinfo.Options{
//	    Platform:   platform,
//	    Dispatcher: d,
//	})
//	if err != nil {
//	    return err
//	}
//	pass, _ := eng.Resolve(ctx)
//	report, err := pass.Wait(ctx)
package deviceinfo
