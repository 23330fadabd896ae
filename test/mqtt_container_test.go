package test

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/prosumer/app"
	"github.com/kilianp07/prosumer/core/dispatch"
	"github.com/kilianp07/prosumer/core/runlog"
	"github.com/kilianp07/prosumer/infra/logger"
	"github.com/kilianp07/prosumer/infra/mqtt"
	"github.com/kilianp07/prosumer/test/util"
)

func TestMQTTSinkContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("container test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	defer cleanup()

	received := make(chan []byte, 4)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("listener"))
	tok := sub.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	defer sub.Disconnect(100)
	tok = sub.Subscribe("home/simulation/#", 1, func(_ paho.Client, m paho.Message) { received <- m.Payload() })
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	sink, err := mqtt.NewSink(mqtt.Config{Broker: broker, ClientID: "prosumer-test", TopicPrefix: "home", QoS: 1})
	require.NoError(t, err)
	svc, err := app.New(quarterHourConfig(dispatch.EngineSelfConsumption),
		app.WithSink(sink), app.WithStore(runlog.NopStore{}), app.WithLogger(logger.NopLogger{}))
	require.NoError(t, err)

	pv, demand := util.SyntheticYear(1, 0.25, 4)
	out, err := svc.Simulate(ctx, pv, demand)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	select {
	case payload := <-received:
		var msg struct {
			RunID string `json:"run_id"`
			Steps int    `json:"steps"`
		}
		require.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, out.RunID, msg.RunID)
		assert.Equal(t, 96, msg.Steps)
	case <-ctx.Done():
		t.Fatal("no simulation message received")
	}
}
