package protocol

import "encoding/json"

// Message is the closed set of inputs the dispatcher understands. Server frames are decoded
// into one of these; WordChosen and Disconnected are produced locally by the session.
type Message interface {
	isMessage()
}

// StateUpdate carries a full session snapshot (GAME_STATE_UPDATE)
type StateUpdate struct {
	State SessionState
}

// ChatMessage carries one chat line (CHAT_MESSAGE)
type ChatMessage struct {
	Entry ChatEntry
}

// DrawingUpdate carries one incremental point (DRAWING_UPDATE)
type DrawingUpdate struct {
	Point DrawPoint
}

// WordToDraw is the private word offer for the drawer (WORD_TO_DRAW)
type WordToDraw struct {
	CurrentDrawerID string
	Words           []string
}

// GameOver ends the game. State is nil when the server sent only the result fields.
type GameOver struct {
	State       *SessionState
	WinnerID    *string
	WinnerName  *string
	FinalScores map[string]int
}

// ServerError is a non-fatal error reported by the server (ERROR)
type ServerError struct {
	Message string
}

// Unknown is any frame whose type this client does not recognize
type Unknown struct {
	Type    MessageType
	Payload json.RawMessage
}

// WordChosen is emitted locally once the drawer picked a word
type WordChosen struct {
	Word string
}

// Disconnected is emitted locally when the transport closed unexpectedly
type Disconnected struct {
	Reason string
}

func (StateUpdate) isMessage()   {}
func (ChatMessage) isMessage()   {}
func (DrawingUpdate) isMessage() {}
func (WordToDraw) isMessage()    {}
func (GameOver) isMessage()      {}
func (ServerError) isMessage()   {}
func (Unknown) isMessage()       {}
func (WordChosen) isMessage()    {}
func (Disconnected) isMessage()  {}

// Outbound is the closed set of frames this client sends to the server
type Outbound interface {
	Type() MessageType
	payload() any
}

// StartGame asks the server to start the game; host-only by server policy
type StartGame struct{}

// NextRound asks the server to advance the round; host-only by server policy
type NextRound struct{}

// ChooseWord selects one of the offered words
type ChooseWord struct {
	Word string `json:"word"`
}

// DrawingData sends one locally authored point
type DrawingData struct {
	Point DrawPoint
}

// Guess sends a chat line or guess
type Guess struct {
	Message string `json:"message"`
}

func (StartGame) Type() MessageType   { return TypeStartGame }
func (NextRound) Type() MessageType   { return TypeNextRound }
func (ChooseWord) Type() MessageType  { return TypeChooseWord }
func (DrawingData) Type() MessageType { return TypeDrawingData }
func (Guess) Type() MessageType       { return TypeGuess }

func (StartGame) payload() any     { return struct{}{} }
func (NextRound) payload() any     { return struct{}{} }
func (m ChooseWord) payload() any  { return m }
func (m DrawingData) payload() any { return m.Point }
func (m Guess) payload() any       { return m }
