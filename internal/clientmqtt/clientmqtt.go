package clientmqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"artnet2fshdr/internal/bridge"
	"artnet2fshdr/internal/logger"
)

// ClientMQTT mirrors every dispatched parameter value to an MQTT broker.
type ClientMQTT struct {
	log       logger.Logger
	cfgClient MQTTConf
	client    mqtt.Client
	opts      *mqtt.ClientOptions
	writers   []io.Closer
}

// NewClient конструктор.
func NewClient(log logger.Logger, cfgClient MQTTConf) *ClientMQTT {
	if cfgClient.Schema == "" {
		cfgClient.Schema = "tcp"
	}
	return &ClientMQTT{
		log:       log,
		cfgClient: cfgClient,
	}
}

func (c *ClientMQTT) Start(ctx context.Context) error {
	c.redirectPahoLogs()

	c.opts = mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%s", c.cfgClient.Schema, c.cfgClient.Host, c.cfgClient.Port)).
		SetUsername(c.cfgClient.User).
		SetPassword(c.cfgClient.Password).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfgClient.ClientID).
		SetOrderMatters(false).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	c.client = mqtt.NewClient(c.opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-ctx.Done():
		return errors.New("context canceled")
	}

	c.log.With(logger.Fields{"module": "mqtt"}).Infof("Status: %v", c.client.IsConnected())
	return nil
}

func (c *ClientMQTT) Stop() error {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(500)
	}

	mqtt.ERROR, mqtt.CRITICAL, mqtt.WARN, mqtt.DEBUG = mqtt.NOOPLogger{}, mqtt.NOOPLogger{}, mqtt.NOOPLogger{}, mqtt.NOOPLogger{}
	for _, w := range c.writers {
		_ = w.Close()
	}
	c.writers = nil
	return nil
}

// redirectPahoLogs points the paho package loggers at logrus.
func (c *ClientMQTT) redirectPahoLogs() {
	l := c.log.With(logger.Fields{"module": "paho"})
	targets := []struct {
		dst   *mqtt.Logger
		level logrus.Level
	}{
		{&mqtt.CRITICAL, logrus.ErrorLevel},
		{&mqtt.ERROR, logrus.ErrorLevel},
		{&mqtt.WARN, logrus.WarnLevel},
	}
	if c.log.GetLevel() == "debug" {
		targets = append(targets, struct {
			dst   *mqtt.Logger
			level logrus.Level
		}{&mqtt.DEBUG, logrus.DebugLevel})
	}

	for _, t := range targets {
		w := l.WriterLevel(t.level)
		c.writers = append(c.writers, w)
		*t.dst = log.New(w, "", 0)
	}
}

// Name implements bridge.Sink.
func (c *ClientMQTT) Name() string {
	return "mqtt"
}

// Send publishes req to <prefix>/<parameter id>.
func (c *ClientMQTT) Send(ctx context.Context, req bridge.Request) error {
	if c.client == nil {
		return errors.New("mqtt client is not started")
	}

	topic, msg, err := c.message(req)
	if err != nil {
		return err
	}

	token := c.client.Publish(topic, c.cfgClient.Qos, true, msg)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("error publish topic %s: %w", topic, token.Error())
		}
	}
	c.log.With(logger.Fields{"module": "mqtt"}).Debugf("published %s: %s", topic, msg)
	return nil
}

func (c *ClientMQTT) message(req bridge.Request) (string, []byte, error) {
	msg, err := json.Marshal(Payload{
		Channel: req.Channel,
		Name:    req.Name,
		Raw:     req.Raw,
		Value:   req.Value,
	})
	if err != nil {
		return "", nil, fmt.Errorf("public topic. msg: %w", err)
	}
	return Topic(c.cfgClient.TopicPrefix, req.ParameterID), msg, nil
}

// Topic returns the retained topic a parameter is published on.
func Topic(prefix, parameterID string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return parameterID
	}
	return prefix + "/" + parameterID
}

func (c *ClientMQTT) connectHandler(_ mqtt.Client) {
	c.log.With(logger.Fields{"module": "mqtt"}).Info("client connected to server")
}

func (c *ClientMQTT) connectLostHandler(_ mqtt.Client, err error) {
	c.log.With(logger.Fields{"module": "mqtt"}).Errorf("server connect lost: %v\n", err)
}

var _ bridge.Sink = (*ClientMQTT)(nil)
