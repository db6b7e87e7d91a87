package homekit

import (
	"context"
	"sync"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"

	"github.com/egregors/hkdash/log"
)

// Device IDs the bridge exposes as switches.
const (
	LightID = "light"
	FanID   = "fan"
)

type HapSrvOpts struct {
	DB  hap.Store
	Pin string

	Bridge      *accessory.Bridge
	Thermometer *accessory.Thermometer
	Humidifier  *accessory.Humidifier
	Light       *accessory.Lightbulb
	Fan         *accessory.Fan
}

type HapSrv struct {
	srv         *hap.Server
	thermometer *accessory.Thermometer
	humidifier  *accessory.Humidifier
	switches    map[string]*characteristic.On

	mu     sync.RWMutex
	remote []func(id string, on bool)
}

func NewHapSrv(hapSrvOpts *HapSrvOpts) (*HapSrv, error) {
	log.Info.Println("make HapSrv")

	s := bindAccessories(hapSrvOpts)

	srv, err := hap.NewServer(
		hapSrvOpts.DB,
		hapSrvOpts.Bridge.A,
		hapSrvOpts.Thermometer.A,
		hapSrvOpts.Humidifier.A,
		hapSrvOpts.Light.A,
		hapSrvOpts.Fan.A,
	)
	if err != nil {
		return nil, err
	}

	if hapSrvOpts.Pin != "" {
		log.Info.Printf("set custom PIN")
		srv.Pin = hapSrvOpts.Pin
	}

	s.srv = srv

	return s, nil
}

// bindAccessories wires characteristic callbacks without starting a server.
func bindAccessories(opts *HapSrvOpts) *HapSrv {
	// see: https://github.com/brutella/hap/pull/53
	opts.Bridge.A.Id = 1
	opts.Thermometer.A.Id = 2
	opts.Humidifier.A.Id = 3
	opts.Light.A.Id = 4
	opts.Fan.A.Id = 5

	s := &HapSrv{
		thermometer: opts.Thermometer,
		humidifier:  opts.Humidifier,
		switches: map[string]*characteristic.On{
			LightID: opts.Light.Lightbulb.On,
			FanID:   opts.Fan.Fan.On,
		},
	}

	for id, on := range s.switches {
		on.OnValueRemoteUpdate(func(v bool) {
			log.Debg.Printf("got HomeKit %s -> %v", id, v)
			s.remoteUpdate(id, v)
		})
	}

	return s
}

// OnRemoteUpdate registers fn for On changes made by a HomeKit client.
func (s *HapSrv) OnRemoteUpdate(fn func(id string, on bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remote = append(s.remote, fn)
}

func (s *HapSrv) remoteUpdate(id string, on bool) {
	s.mu.RLock()
	fns := s.remote
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(id, on)
	}
}

func (s *HapSrv) SetCurrentTemperature(t float64) {
	s.thermometer.TempSensor.CurrentTemperature.SetValue(t)
}

func (s *HapSrv) SetCurrentHumidity(h float64) {
	s.humidifier.Humidifier.CurrentRelativeHumidity.SetValue(h)
}

// SetDeviceOn mirrors a device state to HomeKit. Unknown IDs are ignored.
func (s *HapSrv) SetDeviceOn(id string, on bool) {
	if c, ok := s.switches[id]; ok {
		c.SetValue(on)
	}
}

func (s *HapSrv) ListenAndServe(ctx context.Context) error {
	return s.srv.ListenAndServe(ctx)
}

// DefaultOpts builds the bridge with the simulated accessories.
func DefaultOpts(db hap.Store, pin, lightName, fanName string) *HapSrvOpts {
	info := func(name, model string) accessory.Info {
		return accessory.Info{
			Name:         name,
			SerialNumber: "-",
			Manufacturer: "hkdash",
			Model:        model,
			Firmware:     "-",
		}
	}

	return &HapSrvOpts{
		DB:          db,
		Pin:         pin,
		Bridge:      accessory.NewBridge(info("hkdash", "Simulated bridge")),
		Thermometer: accessory.NewTemperatureSensor(info("Temperature", "Simulated climate")),
		Humidifier:  accessory.NewHumidifier(info("Humidity", "Simulated climate")),
		Light:       accessory.NewLightbulb(info(lightName, "Simulated lamp")),
		Fan:         accessory.NewFan(info(fanName, "Simulated fan")),
	}
}
