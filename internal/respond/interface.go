// Package respond resolves response destinations, renders response
// templates, and emits responses immediately or after a configured delay.
package respond

// Sender is the host chat-client's outbound send primitive. The engine never
// speaks the wire protocol itself.
type Sender interface {
	Send(destinationID, text string) error
}

// ChannelDirectory is the host's view of the channels and targets it knows
// on each network. Resolve matches the name case-insensitively and returns
// the opaque identifier the Sender understands.
type ChannelDirectory interface {
	Resolve(server, name string) (destinationID string, ok bool)
}

// NicknameSource supplies the bot's current nickname on a network, used for
// {{me}} trigger substitution.
type NicknameSource interface {
	Nickname(server string) string
}
