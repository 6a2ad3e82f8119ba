package tenant

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/drewpayment/orbit-relay/internal/transport"
)

// FileWatcher reloads an InMemory registry from a JSON document whenever
// the backing file changes on disk. Grounded on the fsnotify dependency
// carried (but unused directly) by services/bifrost; here it backs the
// tenant hot-reload path for cmd/relay-server.
//
// When hub is non-nil, every reload pushes a Configure invocation to each
// tenant's already-connected connectors, so a config file edit reaches
// live connectors rather than only updating the server's local registry.
type FileWatcher struct {
	path     string
	registry *InMemory
	hub      transport.Hub
	watcher  *fsnotify.Watcher
	log      *logrus.Entry
	done     chan struct{}
}

// NewFileWatcher loads path once and begins watching it for changes. hub
// may be nil, in which case reloads only update the local registry.
func NewFileWatcher(path string, registry *InMemory, hub transport.Hub, log *logrus.Entry) (*FileWatcher, error) {
	fw := &FileWatcher{path: path, registry: registry, hub: hub, log: log, done: make(chan struct{})}
	if err := fw.reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	fw.watcher = w

	go fw.loop()
	return fw, nil
}

func (fw *FileWatcher) loop() {
	for {
		select {
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := fw.reload(); err != nil {
				fw.log.WithError(err).Warn("tenant config reload failed")
			} else {
				fw.log.Info("tenant config reloaded")
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.WithError(err).Warn("tenant file watch error")
		case <-fw.done:
			return
		}
	}
}

func (fw *FileWatcher) reload() error {
	raw, err := os.ReadFile(fw.path)
	if err != nil {
		return err
	}
	var docs []Config
	if err := json.Unmarshal(raw, &docs); err != nil {
		return err
	}
	for _, cfg := range docs {
		fw.registry.Upsert(cfg)
		fw.pushToConnectors(cfg)
	}
	return nil
}

// pushToConnectors sends the reloaded policy to every connector already
// subscribed for cfg's tenant. A connector that connects later does not
// receive this policy; it gets the next reload's push.
func (fw *FileWatcher) pushToConnectors(cfg Config) {
	if fw.hub == nil {
		return
	}
	rcfg := cfg.ToRelayTenantConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, info := range fw.hub.ConnectorsForTenant(cfg.Name) {
		if err := fw.hub.Configure(ctx, info.ConnectorId, rcfg); err != nil {
			fw.log.WithError(err).WithField("connector_id", info.ConnectorId).Warn("push tenant configure")
		}
	}
}

// Close stops the watcher goroutine.
func (fw *FileWatcher) Close() error {
	close(fw.done)
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}
