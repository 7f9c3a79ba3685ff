// Package relay coordinates translation jobs against the worker process.
//
// Submit validates the request, makes sure the worker is ready, posts the
// job, and records it in history. A follower goroutine then tails the
// worker's event stream, republishing frames to the in-process event hub and
// the job store, and settles the job by fetching the finished PDF once the
// stream reports completion.
package relay
