package health

import (
	"bitfrost-bridge/internal/models"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type RegistryStatus struct {
	BridgeStatus string    `json:"bridge_status"`
	Chains       int       `json:"chains"`
	Assets       int       `json:"assets"`
	LastRefresh  time.Time `json:"last_refresh"`
}

// RefreshNotifier is satisfied by registry.Cache.
type RefreshNotifier interface {
	OnRefresh(fn func(*models.RegistrySnapshot))
}

var (
	isReady        int32
	registryStatus *RegistryStatus
	statusMutex    sync.RWMutex
)

func SetReady(ready bool) {
	if ready {
		atomic.StoreInt32(&isReady, 1)
	} else {
		atomic.StoreInt32(&isReady, 0)
	}
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	statusMutex.RLock()
	defer statusMutex.RUnlock()

	if registryStatus == nil || atomic.LoadInt32(&isReady) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready"))

		return
	}

	response := make(map[string]interface{})
	response["status"] = "Ready"
	response["registry"] = registryStatus

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// RegisterRegistry records every successful registry refresh.
func RegisterRegistry(notifier RefreshNotifier) {
	notifier.OnRefresh(updateRegistryStatus)
}

func updateRegistryStatus(snap *models.RegistrySnapshot) {
	statusMutex.Lock()
	defer statusMutex.Unlock()
	registryStatus = &RegistryStatus{
		BridgeStatus: snap.BridgeStatus().String(),
		Chains:       len(snap.Chains()),
		Assets:       len(snap.Assets()),
		LastRefresh:  time.Now(),
	}
}
