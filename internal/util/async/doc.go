// Package async provides utilities for parallel task execution with
// error collection.
//
// [RunParallel] executes multiple operations concurrently and returns all
// errors joined. [RunBounded] does the same with a concurrency limit. Both
// are used by the graph executor to run independent resources of one
// dependency level at the same time.
package async
