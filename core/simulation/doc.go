// Package simulation estimates how long a vehicle needs to travel between two
// stops, or to dwell at one, at a given clock time. Estimates are built from
// the actual running times recorded on several sample days: per day and per
// comparison service the samples either side of the target time are
// interpolated, and days are combined with weights inversely proportional to
// how far their nearest sample lies from the target.
package simulation
