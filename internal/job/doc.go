// Package job implements a durable background job queue.
//
// Producers submit work through a Client, which applies retry and retention
// defaults before handing the Job to a Store. A Runner claims ready jobs from
// the Store, routes each one through a Dispatcher to the Handler registered
// for its type, and records the outcome: completion, a delayed retry with
// backoff, or a final failure once the attempt budget is exhausted.
//
// Stores guarantee that a job is held by at most one worker at a time. A
// claim carries a lease; a worker that outlives its lease loses the job to
// the stalled-job monitor and any late Complete or Fail returns ErrLeaseLost.
package job
