package domain

import (
	"hash/fnv"
	"math/rand"
	"time"
)

// Difficulty is the provider's difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Points maps a difficulty tier to its point value. Unknown tiers are worth 1.
func (d Difficulty) Points() int {
	switch d {
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	default:
		return 1
	}
}

// AnswerType tags how a question is answered.
type AnswerType string

const (
	AnswerMultiple AnswerType = "multiple"
	AnswerBoolean  AnswerType = "boolean"
	AnswerText     AnswerType = "text"
)

// Question is one trivia item. It is immutable once a session has fetched it.
type Question struct {
	ID               string     `json:"id"`
	Text             string     `json:"question"`
	CorrectAnswer    string     `json:"correct_answer"`
	IncorrectAnswers []string   `json:"incorrect_answers"`
	Category         string     `json:"category,omitempty"`
	Difficulty       Difficulty `json:"difficulty,omitempty"`
	Type             AnswerType `json:"type,omitempty"`
	Points           int        `json:"points"`
}

// Choices returns every answer for display. The order is derived from the
// question ID so the same question always renders the same way.
func (q Question) Choices() []string {
	if q.Type == AnswerBoolean {
		return []string{"True", "False"}
	}
	choices := make([]string, 0, len(q.IncorrectAnswers)+1)
	choices = append(choices, q.CorrectAnswer)
	choices = append(choices, q.IncorrectAnswers...)

	h := fnv.New64a()
	h.Write([]byte(q.ID))
	rnd := rand.New(rand.NewSource(int64(h.Sum64())))
	rnd.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	return choices
}

// RawQuestion is a question record as the remote provider sends it; its text
// may still carry HTML entities.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// AnswerMap maps a question index to the exact answer text the user picked.
type AnswerMap map[int]string

// Clone returns an independent copy.
func (a AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Phase is the session state machine's current state.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseActive     Phase = "active"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
)

// TimeLevel is how urgent the remaining time is for display purposes.
type TimeLevel string

const (
	TimeNormal   TimeLevel = "normal"
	TimeLow      TimeLevel = "low"
	TimeCritical TimeLevel = "critical"
)

// TimeLevelFor classifies remaining seconds: low at one minute, critical at thirty seconds.
func TimeLevelFor(remaining int) TimeLevel {
	switch {
	case remaining <= 30:
		return TimeCritical
	case remaining <= 60:
		return TimeLow
	default:
		return TimeNormal
	}
}

// Band groups a percentage into the result page's three outcomes.
type Band string

const (
	BandExcellent Band = "excellent"
	BandPass      Band = "pass"
	BandFail      Band = "fail"
)

// QuestionResult is one row of the per-question breakdown.
type QuestionResult struct {
	Index         int    `json:"index"`
	Question      string `json:"question"`
	Selected      string `json:"selected,omitempty"`
	CorrectAnswer string `json:"correct_answer"`
	Answered      bool   `json:"answered"`
	Correct       bool   `json:"correct"`
}

// ScoreReport is the immutable outcome of a submitted session.
type ScoreReport struct {
	TotalQuestions int              `json:"totalQuestions"`
	CorrectAnswers int              `json:"correctAnswers"`
	Score          int              `json:"score"`
	Percentage     int              `json:"percentage"`
	Band           Band             `json:"band"`
	Answers        AnswerMap        `json:"answers"`
	Breakdown      []QuestionResult `json:"breakdown"`
	TimeTaken      int              `json:"timeTaken"`
	TimedOut       bool             `json:"timedOut"`
	CompletedAt    time.Time        `json:"completedAt"`
}

// QuestionSource says where a persisted question set came from.
type QuestionSource string

const (
	SourceRemote   QuestionSource = "remote"
	SourceFallback QuestionSource = "fallback"
)

// PersistedSessionVersion is written with every snapshot; readers treat it as a hint only.
const PersistedSessionVersion = 1

// PersistedSession is the durable snapshot used to recover a session after a reload.
// TimeRemaining is the countdown value at TimerStartedAt.
type PersistedSession struct {
	Version        int            `json:"version,omitempty"`
	Questions      []Question     `json:"questions"`
	Source         QuestionSource `json:"source,omitempty"`
	CurrentIndex   int            `json:"currentQuestionIndex"`
	Answers        AnswerMap      `json:"answers"`
	TimeRemaining  int            `json:"timeRemaining"`
	TimerStartedAt time.Time      `json:"quizStartTime"`
	SavedAt        time.Time      `json:"timestamp"`
	IsSubmitted    bool           `json:"isSubmitted"`
	Report         *ScoreReport   `json:"report,omitempty"`
}

// RemainingAt recomputes the countdown from wall-clock time, so a suspended
// process does not freeze the clock.
func (p PersistedSession) RemainingAt(now time.Time) int {
	elapsed := int(now.Sub(p.TimerStartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := p.TimeRemaining - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot is the read-only state published to the presentation layer.
type Snapshot struct {
	Phase         Phase        `json:"phase"`
	Questions     []Question   `json:"questions"`
	CurrentIndex  int          `json:"currentIndex"`
	Answers       AnswerMap    `json:"answers"`
	AnsweredCount int          `json:"answeredCount"`
	Complete      bool         `json:"complete"`
	IsSubmitted   bool         `json:"isSubmitted"`
	TimeRemaining int          `json:"timeRemaining"`
	TimeLevel     TimeLevel    `json:"timeLevel"`
	Loading       bool         `json:"loading"`
	Error         string       `json:"error,omitempty"`
	Report        *ScoreReport `json:"report,omitempty"`
}

// User is an authenticated quiz taker.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// AuthSession is a logged-in user plus the token that identifies the login.
type AuthSession struct {
	User      User      `json:"user"`
	Token     string    `json:"sessionId"`
	LoginAt   time.Time `json:"loginAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
