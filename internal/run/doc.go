// Package run holds the data model of a bulk clone run: the per-repository
// Job, its Status, and the aggregate Result produced once every job has
// finished.
//
// Jobs are values. Workers return finished copies instead of mutating shared
// counters, and Summarize folds them into a Result in a single step.
package run
