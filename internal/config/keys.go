package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Keys lists the dotted keys accepted by Get and Set, in display order.
func Keys() []string {
	return []string{
		"simulation.trials",
		"simulation.seed",
		"simulation.percentiles",
		"simulation.workers",
		"output.dir",
		"output.curve_points",
		"logging.level",
	}
}

// Get returns the value stored under a dotted key.
func (c *RiskloopConfig) Get(key string) (any, bool) {
	switch key {
	case "simulation.trials":
		return c.Simulation.Trials, true
	case "simulation.seed":
		if c.Simulation.Seed == nil {
			return "(random)", true
		}
		return *c.Simulation.Seed, true
	case "simulation.percentiles":
		return c.Simulation.Percentiles, true
	case "simulation.workers":
		return c.Simulation.Workers, true
	case "output.dir":
		return c.Output.Dir, true
	case "output.curve_points":
		return c.Output.CurvePoints, true
	case "logging.level":
		return c.Logging.Level, true
	}
	return nil, false
}

// Set parses value and stores it under a dotted key. The result is not
// validated; call Validate afterwards.
func (c *RiskloopConfig) Set(key, value string) error {
	switch key {
	case "simulation.trials":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, value)
		}
		c.Simulation.Trials = n
	case "simulation.seed":
		if value == "" || strings.EqualFold(value, "random") {
			c.Simulation.Seed = nil
			return nil
		}
		s, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not an unsigned integer", key, value)
		}
		c.Simulation.Seed = &s
	case "simulation.percentiles":
		ps, err := ParsePercentiles(value)
		if err != nil {
			return err
		}
		c.Simulation.Percentiles = ps
	case "simulation.workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, value)
		}
		c.Simulation.Workers = n
	case "output.dir":
		c.Output.Dir = value
	case "output.curve_points":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, value)
		}
		c.Output.CurvePoints = n
	case "logging.level":
		c.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
