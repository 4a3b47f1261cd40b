package main

import (
	"fmt"

	"github.com/c360/gridwatch/config"
	"github.com/c360/gridwatch/driver"
	"github.com/c360/gridwatch/errors"
	"github.com/c360/gridwatch/sensor"
)

// natsSensorIDs returns the IDs of sensors fed over NATS, in config order
func natsSensorIDs(cfg *config.Config) []string {
	var ids []string
	for _, s := range cfg.Sensors {
		if s.Type == config.SensorNATS {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// buildGroups turns the sensor section into driver groups. remote supplies
// the sensors of type nats and may be nil when there are none.
func buildGroups(cfg *config.Config, remote []sensor.Sensor) ([]driver.GroupConfig, error) {
	byID := make(map[string]sensor.Sensor, len(remote))
	for _, s := range remote {
		byID[s.ID()] = s
	}

	var groups []driver.GroupConfig
	for _, g := range cfg.Groups() {
		pcfg := cfg.Pipeline
		gc := driver.GroupConfig{Name: g.Name, Pipeline: &pcfg}
		for _, sc := range g.Sensors {
			s, err := buildSensor(sc, byID)
			if err != nil {
				return nil, err
			}
			gc.Sensors = append(gc.Sensors, s)
		}
		groups = append(groups, gc)
	}
	return groups, nil
}

func buildSensor(sc config.SensorConfig, remote map[string]sensor.Sensor) (sensor.Sensor, error) {
	switch sc.Type {
	case config.SensorSimulated:
		return sensor.NewSimulated(sensor.SimulatedConfig{
			ID:          sc.ID,
			Base:        sc.Base,
			Noise:       sc.Noise,
			SpikeEvery:  sc.SpikeEvery,
			SpikeFactor: sc.SpikeFactor,
			Seed:        sc.Seed,
		})
	case config.SensorStatic:
		return sensor.NewStatic(sc.ID, sc.Values...), nil
	case config.SensorNATS:
		s, ok := remote[sc.ID]
		if !ok {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: no nats source for sensor %q", errors.ErrMissingConfig, sc.ID),
				"main", "buildSensor", "resolve remote sensor")
		}
		return s, nil
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %q", sensor.ErrUnknownSensor, sc.Type),
			"main", "buildSensor", "build sensor "+sc.ID)
	}
}
