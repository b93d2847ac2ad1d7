package navserver

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/udisondev/nav3d/internal/nav"
)

// Message types on the websocket.
const (
	TypeFindPath = "find_path"
	TypePath     = "path"
	TypeError    = "error"
)

// clientMessage is a request from a websocket client.
type clientMessage struct {
	Type      string      `json:"type"`
	Seq       uint64      `json:"seq"`
	Volume    string      `json:"volume"`
	Requester string      `json:"requester"`
	Start     *[3]float64 `json:"start"`
	End       *[3]float64 `json:"end"`
}

type pathMessage struct {
	Type   string       `json:"type"`
	Seq    uint64       `json:"seq"`
	Result string       `json:"result"`
	Points [][3]float64 `json:"points"`
	Long   bool         `json:"long"`
}

type errorMessage struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
}

func newPathMessage(seq uint64, result nav.Result, points []mgl64.Vec3, longThreshold int) pathMessage {
	msg := pathMessage{
		Type:   TypePath,
		Seq:    seq,
		Result: result.String(),
		Points: make([][3]float64, len(points)),
		Long:   len(points) > longThreshold,
	}
	for i, p := range points {
		msg.Points[i] = [3]float64(p)
	}
	return msg
}
