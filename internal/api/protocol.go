package api

import "encoding/json"

// clientMessage is the envelope every inbound WebSocket frame uses.
// Data stays raw until the action is known.
type clientMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Inbound payloads, one struct per action.

type createRoomPayload struct {
	PlayerName    string `json:"playerName"`
	ProgressionID string `json:"progressionId"`
	TotalXP       int    `json:"totalXp"`

	RoomName   string  `json:"roomName"`
	Mode       string  `json:"mode"`
	MaxPlayers int     `json:"maxPlayers"`
	Bots       int     `json:"bots"`
	Difficulty string  `json:"difficulty"`
	Duration   float64 `json:"duration"` // Seconds
}

type joinRoomPayload struct {
	RoomID        string `json:"roomId"`
	PlayerName    string `json:"playerName"`
	ProgressionID string `json:"progressionId"`
	TotalXP       int    `json:"totalXp"`
}

type quickMatchPayload struct {
	PlayerName    string `json:"playerName"`
	ProgressionID string `json:"progressionId"`
	TotalXP       int    `json:"totalXp"`
}

type playerUpdatePayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Yaw    float64 `json:"yaw"`
	Pitch  float64 `json:"pitch"`
	Weapon string  `json:"weapon"` // equipped weapon key, empty keeps current
}

type shootPayload struct {
	TargetID string `json:"targetId"`
	Headshot bool   `json:"headshot"`
}

type rocketExplodePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type chatPayload struct {
	Message string `json:"message"`
}
