package verto

// SocketHandler receives the lifecycle callbacks of a Socket. The Session
// implements it; adapters must deliver callbacks from a single goroutine.
type SocketHandler interface {
	OnOpen()
	OnMessage(data []byte)
	OnClose(code int)
}

// Socket is the injected physical transport. Connect may be called again
// after OnClose to re-establish the connection.
type Socket interface {
	Connect(h SocketHandler) error
	Send(data []byte) error
	Close() error
}
