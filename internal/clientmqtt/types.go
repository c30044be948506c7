package clientmqtt

type MQTTConf struct {
	ClientID    string // ClientID - уникальное имя клиента для брокеров.
	Schema      string // Schema - тип подключения.
	Host        string // Host - адрес MQTT сервера.
	Port        string // Port - порт MQTT сервера.
	User        string // User - логин для подключения к MQTT серверу.
	Password    string // Password - пароль для подключения к MQTT серверу.
	Qos         byte   // Qos - качество обслуживания.
	TopicPrefix string // TopicPrefix - префикс топиков, например "fshdr".
}

// Payload is published for every applied parameter value.
type Payload struct {
	Channel int     `json:"channel"` // Channel is the DMX channel (0-511).
	Name    string  `json:"name"`    // Name is the channel label.
	Raw     uint8   `json:"raw"`     // Raw is the DMX value (0-255).
	Value   float64 `json:"value"`   // Value is the scaled parameter value.
}
