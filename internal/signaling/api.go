package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/BioHazard786/Roomdrop/internal/dns"
	"github.com/BioHazard786/Roomdrop/internal/rooms"
)

// API talks to the relay's room REST endpoints.
type API struct {
	roomsURL string
	http     *http.Client
}

// NewAPI creates a client for the rooms collection at roomsURL.
func NewAPI(roomsURL string) *API {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dns.DialContext
	return &API{
		roomsURL: roomsURL,
		http:     &http.Client{Transport: transport, Timeout: 15 * time.Second},
	}
}

// CreateRoom asks the relay for a new room and returns its id.
func (a *API) CreateRoom(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.roomsURL, nil)
	if err != nil {
		return "", err
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := a.do(req, http.StatusCreated, &body); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	if body.ID == "" {
		return "", fmt.Errorf("create room: relay returned no id")
	}
	return body.ID, nil
}

// GetRoom fetches a room's public membership. Unknown rooms yield
// rooms.ErrRoomNotFound.
func (a *API) GetRoom(ctx context.Context, id string) (rooms.PublicRoom, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.roomsURL+"/"+url.PathEscape(id), nil)
	if err != nil {
		return rooms.PublicRoom{}, err
	}

	var room rooms.PublicRoom
	if err := a.do(req, http.StatusOK, &room); err != nil {
		return rooms.PublicRoom{}, fmt.Errorf("get room %s: %w", id, err)
	}
	return room, nil
}

func (a *API) do(req *http.Request, want int, v any) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return rooms.ErrRoomNotFound
	}
	if resp.StatusCode != want {
		var e struct {
			Error string `json:"error"`
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("relay returned %s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("relay returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
