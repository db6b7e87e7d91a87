package homekit

import (
	"context"
)

type NoopHap struct{}

func (n NoopHap) SetCurrentTemperature(float64) {}

func (n NoopHap) SetCurrentHumidity(float64) {}

func (n NoopHap) SetDeviceOn(string, bool) {}

func (n NoopHap) OnRemoteUpdate(func(id string, on bool)) {}

func (n NoopHap) ListenAndServe(ctx context.Context) error {
	<-ctx.Done()

	return nil
}
