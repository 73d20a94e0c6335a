package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/domain"
)

// RestClient fetches room defaults from the companion HTTP API. Results are
// cached per instance after the first successful fetch.
type RestClient struct {
	baseURL string
	client  *http.Client

	mu            sync.Mutex
	iceServers    []domain.IceServer
	defaultLayout *domain.RoomLayout
}

func NewRestClient(baseURL string) *RestClient {
	return &RestClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// IceServers returns the ICE server list for peer connections. A cached copy
// is returned after the first successful fetch.
func (r *RestClient) IceServers() ([]domain.IceServer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.iceServers != nil {
		return r.iceServers, nil
	}

	var servers []domain.IceServer
	if err := r.getJSON("/ice-servers", &servers); err != nil {
		return nil, err
	}
	r.iceServers = servers
	log.Debug().Str("module", "rest").Int("count", len(servers)).Msg("fetched ice servers")
	return servers, nil
}

// DefaultLayout returns the room's default video layout.
func (r *RestClient) DefaultLayout() (*domain.RoomLayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.defaultLayout != nil {
		return r.defaultLayout, nil
	}

	var layout domain.RoomLayout
	if err := r.getJSON("/default-room-layout", &layout); err != nil {
		return nil, err
	}
	r.defaultLayout = &layout
	return r.defaultLayout, nil
}

func (r *RestClient) getJSON(path string, out any) error {
	resp, err := r.client.Get(r.baseURL + path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
