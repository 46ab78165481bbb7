package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"version": s.Version,
		"time":    s.BuildTime,
	})
}

// handleDebugRooms dumps a snapshot of every live room.
func (s *Server) handleDebugRooms(w http.ResponseWriter, r *http.Request) {
	snaps := s.reg.Snapshots()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count": len(snaps),
		"rooms": snaps,
	})
}

// handleRoomQR serves a PNG QR code of the join link, for putting a room
// up on a projector.
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if _, ok := s.reg.Get(code); !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	url := fmt.Sprintf("%s/?room=%s", s.cfg.PublicURL, code)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
