package respond

import (
	"strings"
	"sync"
)

// StaticDirectory is a ChannelDirectory backed by a fixed per-network
// channel list, used when the engine runs standalone rather than embedded in
// a chat client. The destination identifier is the channel's canonical name
// as registered.
type StaticDirectory struct {
	mu       sync.RWMutex
	channels map[string]map[string]string // server -> lowercased name -> canonical name
}

// NewStaticDirectory creates an empty directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		channels: make(map[string]map[string]string),
	}
}

// AddChannel registers a channel under a network.
func (d *StaticDirectory) AddChannel(server, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byName, ok := d.channels[server]
	if !ok {
		byName = make(map[string]string)
		d.channels[server] = byName
	}
	byName[strings.ToLower(name)] = name
}

// SetChannels replaces the whole directory, typically after a settings
// reload.
func (d *StaticDirectory) SetChannels(byServer map[string][]string) {
	channels := make(map[string]map[string]string, len(byServer))
	for server, names := range byServer {
		byName := make(map[string]string, len(names))
		for _, name := range names {
			byName[strings.ToLower(name)] = name
		}
		channels[server] = byName
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = channels
}

// Resolve implements ChannelDirectory.
func (d *StaticDirectory) Resolve(server, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	byName, ok := d.channels[server]
	if !ok {
		return "", false
	}
	canonical, ok := byName[strings.ToLower(name)]
	return canonical, ok
}
