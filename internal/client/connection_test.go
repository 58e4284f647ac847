package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/nodelink/internal/entity"
	"github.com/nerrad567/nodelink/internal/server"
	"github.com/nerrad567/nodelink/internal/wire"
)

// testDevice bundles a running server and its registry.
type testDevice struct {
	srv *server.Server
	reg *entity.Registry
}

// applyHandler applies commands straight back to the registry, the way
// real hardware confirms a command by reporting the resulting state.
type applyHandler struct {
	reg *entity.Registry
}

func (h *applyHandler) HandleSwitchCommand(key entity.Key, on bool) error {
	return h.reg.UpdateState(key, entity.SwitchState(on))
}

func (h *applyHandler) HandleLightCommand(key entity.Key, cmd wire.LightCommand) error {
	e, ok := h.reg.Find(key)
	if !ok {
		return errors.New("unknown light")
	}
	state := e.State
	if cmd.HasOn {
		state.On = cmd.On
	}
	if cmd.HasBrightness {
		state.Brightness = cmd.Brightness
	}
	if cmd.HasRGB {
		state.Red, state.Green, state.Blue = cmd.Red, cmd.Green, cmd.Blue
	}
	return h.reg.UpdateState(key, state)
}

func startDevice(t *testing.T, cfg server.Config) *testDevice {
	t.Helper()
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	if cfg.ServerInfo == "" {
		cfg.ServerInfo = "nodelink-test"
	}
	reg := entity.NewRegistry(entity.DefaultCapacity)
	srv := server.New(cfg, reg, &applyHandler{reg: reg})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start device: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return &testDevice{srv: srv, reg: reg}
}

func dialDevice(t *testing.T, dev *testDevice, password string) *Connection {
	t.Helper()
	c := New(Config{
		Addr:           dev.srv.Addr().String(),
		Password:       password,
		ConnectTimeout: 2 * time.Second,
		RequestTimeout: 2 * time.Second,
	})
	t.Cleanup(func() { c.Close() })
	return c
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLazyConnect(t *testing.T) {
	dev := startDevice(t, server.Config{
		Info: wire.DeviceInfo{Name: "greenhouse", Version: "1.2.0", Board: "esp32dev"},
	})
	c := dialDevice(t, dev, "")

	if c.IsConnected() {
		t.Fatal("connected before any operation")
	}

	// The first operation dials and handshakes.
	info, err := c.GetDeviceInfo(testCtx(t))
	if err != nil {
		t.Fatalf("GetDeviceInfo: %v", err)
	}
	if info.Name != "greenhouse" || info.Version != "1.2.0" {
		t.Errorf("device info = %+v", info)
	}
	if !c.IsConnected() {
		t.Error("not connected after successful operation")
	}
}

func TestConnectInvalidPassword(t *testing.T) {
	dev := startDevice(t, server.Config{Password: "secret"})
	c := dialDevice(t, dev, "wrong")

	_, err := c.GetDeviceInfo(testCtx(t))
	if !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("err = %v, want ErrInvalidPassword", err)
	}
	if c.IsConnected() {
		t.Error("connected after rejected handshake")
	}
}

func TestPing(t *testing.T) {
	dev := startDevice(t, server.Config{})
	c := dialDevice(t, dev, "")

	alive, err := c.Ping(testCtx(t))
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !alive {
		t.Error("live loopback device reported not alive")
	}
}

func TestListEntities(t *testing.T) {
	dev := startDevice(t, server.Config{})
	keys := map[string]entity.Key{}
	for _, reg := range []struct {
		name string
		kind entity.Kind
	}{
		{"door", entity.KindBinarySensor},
		{"temp", entity.KindSensor},
		{"relay", entity.KindSwitch},
		{"lamp", entity.KindLight},
	} {
		key, err := dev.reg.Register(reg.name, reg.kind)
		if err != nil {
			t.Fatalf("register %s: %v", reg.name, err)
		}
		keys[reg.name] = key
	}

	c := dialDevice(t, dev, "")
	entities, err := c.ListEntities(testCtx(t))
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(entities) != 4 {
		t.Fatalf("got %d entities, want 4", len(entities))
	}

	// Registration order is preserved end to end.
	wantOrder := []string{"door", "temp", "relay", "lamp"}
	wantKind := []entity.Kind{
		entity.KindBinarySensor, entity.KindSensor, entity.KindSwitch, entity.KindLight,
	}
	for i, e := range entities {
		if e.Name != wantOrder[i] {
			t.Errorf("entity %d name = %q, want %q", i, e.Name, wantOrder[i])
		}
		if e.Kind != wantKind[i] {
			t.Errorf("entity %d kind = %v, want %v", i, e.Kind, wantKind[i])
		}
		if e.Key != keys[e.Name] {
			t.Errorf("entity %q key = %d, want %d", e.Name, e.Key, keys[e.Name])
		}
	}
}

func TestSubscribeStates(t *testing.T) {
	dev := startDevice(t, server.Config{})
	tempKey, err := dev.reg.Register("temp", entity.KindSensor)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := dev.reg.UpdateState(tempKey, entity.SensorState(18.25)); err != nil {
		t.Fatalf("update: %v", err)
	}

	c := dialDevice(t, dev, "")
	updates, err := c.SubscribeStates(testCtx(t))
	if err != nil {
		t.Fatalf("SubscribeStates: %v", err)
	}

	// Snapshot first.
	select {
	case u := <-updates:
		if u.Key != tempKey || u.State.Value != 18.25 || u.State.Missing {
			t.Errorf("snapshot update = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot update")
	}

	// Then deltas as they happen.
	if err := dev.reg.UpdateState(tempKey, entity.SensorState(19.0)); err != nil {
		t.Fatalf("update: %v", err)
	}
	select {
	case u := <-updates:
		if u.Key != tempKey || u.State.Value != 19.0 {
			t.Errorf("delta update = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no delta update")
	}
}

func TestCommandRoundTrip(t *testing.T) {
	dev := startDevice(t, server.Config{})
	relayKey, err := dev.reg.Register("relay", entity.KindSwitch)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	lampKey, err := dev.reg.Register("lamp", entity.KindLight)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	c := dialDevice(t, dev, "")
	ctx := testCtx(t)
	updates, err := c.SubscribeStates(ctx)
	if err != nil {
		t.Fatalf("SubscribeStates: %v", err)
	}

	// Drain the two snapshot updates.
	for range 2 {
		select {
		case <-updates:
		case <-time.After(2 * time.Second):
			t.Fatal("missing snapshot update")
		}
	}

	if err := c.SendSwitchCommand(ctx, relayKey, true); err != nil {
		t.Fatalf("SendSwitchCommand: %v", err)
	}
	select {
	case u := <-updates:
		if u.Key != relayKey || !u.State.On {
			t.Errorf("switch update = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("switch command produced no state push")
	}

	if err := c.SendLightCommand(ctx, lampKey, wire.LightCommand{
		HasOn: true, On: true,
		HasBrightness: true, Brightness: 0.75,
	}); err != nil {
		t.Fatalf("SendLightCommand: %v", err)
	}
	select {
	case u := <-updates:
		if u.Key != lampKey || !u.State.On || u.State.Brightness != 0.75 {
			t.Errorf("light update = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("light command produced no state push")
	}
}

func TestDisconnectThenReconnect(t *testing.T) {
	dev := startDevice(t, server.Config{})
	c := dialDevice(t, dev, "")

	if _, err := c.Ping(testCtx(t)); err != nil {
		t.Fatalf("first ping: %v", err)
	}
	if err := c.Disconnect(testCtx(t)); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if c.IsConnected() {
		t.Fatal("connected after Disconnect")
	}

	// The device releases its single-connection slot asynchronously;
	// retry until the lazy reconnect lands.
	deadline := time.Now().Add(3 * time.Second)
	for {
		alive, err := c.Ping(testCtx(t))
		if err == nil && alive {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("reconnect never succeeded: alive=%v err=%v", alive, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestUpdatesChannelClosesOnTeardown(t *testing.T) {
	dev := startDevice(t, server.Config{})
	c := dialDevice(t, dev, "")

	updates, err := c.SubscribeStates(testCtx(t))
	if err != nil {
		t.Fatalf("SubscribeStates: %v", err)
	}

	// Killing the device tears the session down; consumers ranging the
	// channel terminate.
	dev.srv.Close()

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("got an update after device shutdown")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("updates channel never closed")
	}
}

func TestOperationsAfterClose(t *testing.T) {
	dev := startDevice(t, server.Config{})
	c := dialDevice(t, dev, "")

	if _, err := c.Ping(testCtx(t)); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := c.GetDeviceInfo(testCtx(t)); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}
