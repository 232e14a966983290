// Package jobs runs the dispatch client's periodic refreshes.
//
// One Scheduler built on github.com/robfig/cron/v3 owns every interval task.
// Each task has a gate evaluated against the current state and an in-flight
// flag shared by cron ticks and manual triggers, so a resource is never polled
// twice at once.
//
// # Tasks
//
//  1. nearby-businesses - every 30s while online with a position
//  2. selected-business-orders - every 30s while a business panel is open
//  3. my-orders - every 30s while online
//  4. location-refresh - every 180s while online with a position
//
// # Usage
//
//	jobManager := jobs.NewJobManager(store, handlers, jobs.Intervals{}, logger)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// Closed gates and expected command errors (offline, no position yet) are not
// logged as failures. Other errors are logged at warn; a task never stops the
// scheduler, and a panic in a task is recovered and logged.
package jobs
