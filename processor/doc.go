// Package processor provides mh.StateProcessor implementations: a logrus
// progress logger, a tab-separated trip-size distribution log, and a SQLite
// store of sampled states.
//
// All processors sample the chain with a Sampling schedule: states before
// the burn-in are skipped, after it every Interval-th state is processed.
package processor
