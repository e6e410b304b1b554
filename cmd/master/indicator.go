package main

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// pinIndicator drives the setup LED: high means every slave set up.
type pinIndicator struct {
	pin gpio.PinOut
}

func openIndicator(name string) (*pinIndicator, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("indicator: no gpio named %q", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("indicator %s: %w", name, err)
	}
	return &pinIndicator{pin: p}, nil
}

func (i *pinIndicator) Set(ok bool) error {
	if ok {
		return i.pin.Out(gpio.High)
	}
	return i.pin.Out(gpio.Low)
}
