package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Answer string `json:"ans"`
}

// SubmitRequest is sent by the client to finish and grade the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// StateRequest is sent by the client to request the attempt snapshot.
type StateRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventGraded  Event = "graded"
	EventState   Event = "state"
	EventExpired Event = "expired"
	EventPong    Event = "pong"
)

type AutosaveResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type GradedResponse struct {
	Event      Event   `json:"event"`
	Status     string  `json:"status"`
	Score      int     `json:"score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

type StateResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
	Submitted        bool  `json:"submitted"`
	AnswerCount      int   `json:"answer_count"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
