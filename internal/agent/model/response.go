package model

type Stage string

const (
	StageGreeting       Stage = "greeting"
	StageCollectingInfo Stage = "collecting_info"
	StageSymptoms       Stage = "symptoms"
	StageProducts       Stage = "products"
	StageObjections     Stage = "objections"
)

// ReplyKind classifies the last user utterance.
type ReplyKind string

const (
	KindPositive       ReplyKind = "positive"
	KindComplaint      ReplyKind = "complaint"
	KindAcknowledgment ReplyKind = "acknowledgment"
)

// Source names who produced the candidate text.
type Source string

const (
	SourceRemote      Source = "remote"
	SourceFallback    Source = "fallback"
	SourceUnavailable Source = "unavailable"
	SourceSystem      Source = "system"
)

// TurnInput is what the session service hands to the turn pipeline.
type TurnInput struct {
	State *ConversationState
	Text  string
}

// CandidateResponse is one proposed agent turn before and after the guards.
type CandidateResponse struct {
	Text          string        `json:"text"`
	ShowCard      bool          `json:"show_card"`
	ProductID     string        `json:"product_id,omitempty"`
	HasGreeted    bool          `json:"has_greeted"`
	CollectedInfo CollectedInfo `json:"collected_info"`
	Stage         Stage         `json:"stage"`
	Kind          ReplyKind     `json:"kind"`
	Source        Source        `json:"source"`
	// Notes lists the guard rewrites applied, for logging.
	Notes []string `json:"notes,omitempty"`
}
