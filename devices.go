package main

import (
	"fmt"

	"github.com/chase3718/tonedrive/device"
	"github.com/chase3718/tonedrive/picker"
)

// openDevice picks the output for this run: a dry-run logger, a MIDI output,
// or a serial tone module, prompting for the port when none is configured.
func openDevice(opts *options) (device.ToneDevice, error) {
	switch {
	case opts.dry:
		return device.NewDummy(logger), nil
	case opts.midiOut != "":
		out, err := device.OpenMIDIOut(opts.midiOut, logger)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	port := opts.port
	if port == "" {
		ports, err := device.ListPorts()
		if err != nil {
			return nil, err
		}
		logger.Debug("serial: ports found", "ports", ports)
		port, err = picker.Run("Select the tone module port", ports)
		if err != nil {
			return nil, err
		}
	}
	dev, err := device.OpenSerial(port, opts.baud, opts.ignoreID, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", port, err)
	}
	return dev, nil
}
