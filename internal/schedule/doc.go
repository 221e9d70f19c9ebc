// Package schedule binds sequences to times of day.
//
// A Schedule names a sequence, an "HH:MM" trigger time in the site
// timezone and a frequency: daily, weekdays (Mon-Fri), weekends (Sat-Sun)
// or once. The Store validates trigger times, frequencies and the
// referenced sequence before anything is persisted.
//
// The Engine ticks at each minute boundary. For every active schedule
// that matches the current minute it requests a run from the executor and
// emits schedule-fired. A once schedule is switched off in the same write
// that records the fire, and switched back on if the request fails. A schedule
// whose sequence has gone is skipped with schedule-orphaned. Missed
// minutes are not caught up.
package schedule
