package types

type ResponseType string

// Actor -> server
const (
	RespClientInfo           ResponseType = "CLIENT_INFO"
	RespInstructionsComplete ResponseType = "INTERACTION_INSTRUCTIONS_COMPLETE"
	RespResponse             ResponseType = "RESPONSE"
	RespFinishedFeedback     ResponseType = "FINISHED_FEEDBACK"
	RespNonresponsivePartner ResponseType = "NONRESPONSIVE_PARTNER"
	RespAfterTrainingTimeout ResponseType = "AFTER_TRAINING_TIMEOUT"
	RespPing                 ResponseType = "Ping"
	RespPong                 ResponseType = "Pong"
)

type ClientMessage struct {
	Type       ResponseType `json:"response_type"`
	ClientInfo string       `json:"client_info,omitempty"`
	Role       string       `json:"role,omitempty"`     // RESPONSE: "Director" | "Matcher"
	Response   string       `json:"response,omitempty"` // RESPONSE: label or guess
}

type CommandType string

// Server -> actor
const (
	CmdWaitingRoomPairing CommandType = "WaitingRoomPairing"
	CmdPairID             CommandType = "PairID"
	CmdInstructions       CommandType = "Instructions"
	CmdWaitForPartner     CommandType = "WaitForPartner"
	CmdDirector           CommandType = "Director"
	CmdMatcher            CommandType = "Matcher"
	CmdFeedback           CommandType = "Feedback"
	CmdPing               CommandType = "Ping"
	CmdPong               CommandType = "Pong"
	CmdPartnerDropout     CommandType = "PartnerDropout"
	CmdEndExperiment      CommandType = "EndExperiment"
	CmdError              CommandType = "Error"
)

// Command is anything the server sends to an actor. Every payload is a flat
// JSON object carrying its command_type.
type Command interface {
	Kind() CommandType
}

// Directive carries no payload beyond its type.
type Directive struct {
	Type CommandType `json:"command_type"`
}

type PairIDMessage struct {
	Type   CommandType `json:"command_type"`
	PairID string      `json:"pair_id"`
}

type InstructionsMessage struct {
	Type            CommandType `json:"command_type"`
	InstructionType string      `json:"instruction_type"`
}

type DirectorMessage struct {
	Type          CommandType `json:"command_type"`
	TargetMeaning string      `json:"target_meaning"`
	ContextArray  []string    `json:"context_array"`
	LabelChoices  []string    `json:"label_choices"`
	BlockN        int         `json:"block_n"`
	TrialN        int         `json:"trial_n"`
	MaxTrialN     int         `json:"max_trial_n"`
	PartnerID     string      `json:"partner_id"`
}

type MatcherMessage struct {
	Type           CommandType `json:"command_type"`
	TargetMeaning  string      `json:"target_meaning"`
	DirectorLabel  string      `json:"director_label"`
	MeaningChoices []string    `json:"meaning_choices"`
	BlockN         int         `json:"block_n"`
	TrialN         int         `json:"trial_n"`
	MaxTrialN      int         `json:"max_trial_n"`
	PartnerID      string      `json:"partner_id"`
}

type FeedbackMessage struct {
	Type         CommandType `json:"command_type"`
	Score        int         `json:"score"`
	Target       string      `json:"target"`
	Guess        string      `json:"guess"`
	BreakAllowed bool        `json:"break_allowed"`
}

type ErrorMessage struct {
	Type  CommandType `json:"command_type"`
	Error string      `json:"error"`
}

func (m Directive) Kind() CommandType           { return m.Type }
func (m PairIDMessage) Kind() CommandType       { return m.Type }
func (m InstructionsMessage) Kind() CommandType { return m.Type }
func (m DirectorMessage) Kind() CommandType     { return m.Type }
func (m MatcherMessage) Kind() CommandType      { return m.Type }
func (m FeedbackMessage) Kind() CommandType     { return m.Type }
func (m ErrorMessage) Kind() CommandType        { return m.Type }

func NewDirective(t CommandType) Directive { return Directive{Type: t} }

func NewError(msg string) ErrorMessage {
	return ErrorMessage{Type: CmdError, Error: msg}
}
