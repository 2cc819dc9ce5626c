// Package history keeps a local record of completed resolution passes.
//
// Each record stores the pass report and the property snapshot taken when
// the pass became ready, so the API can show how a device's answers
// changed over time without any external time-series database.
package history
