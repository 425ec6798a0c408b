package check

import "time"

// Ping compensation widens thresholds for laggy players. Every leniency is
// capped so a player cannot buy unlimited slack by inflating their ping.

// PingTimeLeniency returns extra time allowance for a ping in milliseconds.
// The allowance is ping/divisor capped at capMillis.
func PingTimeLeniency(pingMillis int, divisor, capMillis float64) time.Duration {
	if pingMillis <= 0 || divisor <= 0 {
		return 0
	}
	lenience := float64(pingMillis) / divisor
	if lenience > capMillis {
		lenience = capMillis
	}
	return time.Duration(lenience * float64(time.Millisecond))
}

// PingDistanceLeniency returns extra distance allowance in blocks for a
// ping in milliseconds. The allowance is ping/divisor capped at capBlocks.
func PingDistanceLeniency(pingMillis int, divisor, capBlocks float64) float64 {
	if pingMillis <= 0 || divisor <= 0 {
		return 0
	}
	lenience := float64(pingMillis) / divisor
	if lenience > capBlocks {
		lenience = capBlocks
	}
	return lenience
}
