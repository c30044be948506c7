package bridge

import "context"

// Request is one parameter-set action derived from a changed channel.
type Request struct {
	Channel     int     `json:"channel"` // Channel - номер DMX канала.
	Name        string  `json:"name"`    // Name - имя канала из таблицы.
	ParameterID string  `json:"param"`   // ParameterID - eParamID устройства.
	Raw         uint8   `json:"raw"`     // Raw - исходное значение DMX.
	Value       float64 `json:"value"`   // Value - значение после масштабирования.
}

// Sink receives dispatched requests. Send is called from a worker goroutine
// and must honour ctx.
type Sink interface {
	Name() string
	Send(ctx context.Context, req Request) error
}

// Observer is notified about bridge activity. All methods must be safe for
// concurrent use.
type Observer interface {
	FrameReceived()
	DeltaDetected(n int)
	SchemaMiss()
	RequestSent(sink string)
	RequestFailed(sink string)
	RequestDropped(sink string)
}

type nopObserver struct{}

func (nopObserver) FrameReceived()        {}
func (nopObserver) DeltaDetected(int)     {}
func (nopObserver) SchemaMiss()           {}
func (nopObserver) RequestSent(string)    {}
func (nopObserver) RequestFailed(string)  {}
func (nopObserver) RequestDropped(string) {}
