//go:build !windows

package main

// raiseMiningPriority is a no-op outside Windows. Raising priority needs
// privileges there; run the miner under nice(1) instead, e.g.
// nice -n -5 powfaucet mine ...
func raiseMiningPriority() error {
	return nil
}
