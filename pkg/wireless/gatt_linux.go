//go:build linux

package wireless

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/rs/zerolog/log"
)

// Serve registers the hub's GATT service on the default HCI adapter and
// advertises until ctx is cancelled.
func Serve(ctx context.Context, a *Adapter, opts Options) error {
	opts = opts.withDefaults()

	dev, err := linux.NewDevice()
	if err != nil {
		return fmt.Errorf("open bluetooth adapter: %w", err)
	}
	defer dev.Stop()
	ble.SetDefaultDevice(dev)

	svcUUID := ble.MustParse(ServiceUUID)
	svc := ble.NewService(svcUUID)

	cmd := svc.NewCharacteristic(ble.MustParse(CommandCharUUID))
	cmd.HandleWrite(ble.WriteHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		if err := a.Write(req.Data()); err != nil {
			rsp.SetStatus(ble.ATTError(attValueRejected))
		}
	}))
	cmd.HandleRead(ble.ReadHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		writeValue(rsp, a.ReadLevel(ctx))
	}))
	cmd.HandleNotify(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
		log.Info().Str("central", req.Conn().RemoteAddr().String()).Msg("Level notifications started")
		notifyLoop(n.Context(), opts.NotifyInterval, a.CachedLevel, func(b []byte) error {
			_, err := n.Write(b)
			return err
		})
	}))

	levels := svc.NewCharacteristic(ble.MustParse(LevelsCharUUID))
	levels.HandleRead(ble.ReadHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
		writeValue(rsp, a.ReadLevels(ctx))
	}))
	levels.HandleNotify(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
		notifyLoop(n.Context(), opts.NotifyInterval, a.CachedLevels, func(b []byte) error {
			_, err := n.Write(b)
			return err
		})
	}))

	if err := ble.AddService(svc); err != nil {
		return fmt.Errorf("add gatt service: %w", err)
	}

	log.Info().Str("name", opts.LocalName).Str("service", ServiceUUID).Msg("Advertising BLE service")

	err = ble.AdvertiseNameAndServices(ctx, opts.LocalName, svcUUID)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("advertise: %w", err)
	}
	return nil
}

func writeValue(rsp ble.ResponseWriter, b []byte) {
	if c := rsp.Cap(); c > 0 && len(b) > c {
		b = b[:c]
	}
	if _, err := rsp.Write(b); err != nil {
		log.Debug().Err(err).Msg("Short BLE read response")
	}
}
