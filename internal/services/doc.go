// Package services defines the error taxonomy and context plumbing shared by
// every filmpress component.
//
// Errors are tagged with sentinel markers (resolution, execution, store, ...)
// via Wrap so the cycle runner can classify a failure without string matching.
// Context helpers carry the run identifier and the source path so loggers can
// tag lines without threading extra arguments through call chains.
package services
