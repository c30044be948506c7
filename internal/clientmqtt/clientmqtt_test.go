package clientmqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artnet2fshdr/internal/bridge"
	"artnet2fshdr/internal/logger"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "fshdr/eParamID_TV_Vid1RedGain", Topic("fshdr", "eParamID_TV_Vid1RedGain"))
	assert.Equal(t, "studio/fshdr/p", Topic("/studio/fshdr/", "p"))
	assert.Equal(t, "p", Topic("", "p"))
}

func TestMessage(t *testing.T) {
	l, _ := test.NewNullLogger()
	c := NewClient(logger.New(l), MQTTConf{TopicPrefix: "fshdr"})
	assert.Equal(t, "tcp", c.cfgClient.Schema)

	topic, msg, err := c.message(bridge.Request{
		Channel:     5,
		Name:        "Master Lift",
		ParameterID: "eParamID_TV_Vid1MasterLift",
		Raw:         191,
		Value:       503.937,
	})
	require.NoError(t, err)
	assert.Equal(t, "fshdr/eParamID_TV_Vid1MasterLift", topic)

	var p Payload
	require.NoError(t, json.Unmarshal(msg, &p))
	assert.Equal(t, Payload{Channel: 5, Name: "Master Lift", Raw: 191, Value: 503.937}, p)
}

func TestSendBeforeStart(t *testing.T) {
	l, _ := test.NewNullLogger()
	c := NewClient(logger.New(l), MQTTConf{})

	assert.Error(t, c.Send(context.Background(), bridge.Request{ParameterID: "p"}))
	assert.NoError(t, c.Stop())
	assert.Equal(t, "mqtt", c.Name())
}

func TestPahoLogsGoToLogrus(t *testing.T) {
	l, hook := test.NewNullLogger()
	c := NewClient(logger.New(l), MQTTConf{})

	c.redirectPahoLogs()
	mqtt.ERROR.Println("broker refused connection")

	assert.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.ErrorLevel && e.Message == "broker refused connection" && e.Data["module"] == "paho" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Stop())
	assert.Equal(t, mqtt.NOOPLogger{}, mqtt.ERROR)
}
