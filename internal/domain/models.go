package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// GameState is the enumerated phase of a quiz session. Transitions are
// forward-only and driven by the host; see game.NextStates.
type GameState string

const (
	StateLobby           GameState = "LOBBY"
	StateClanBattleVs    GameState = "CLAN_BATTLE_VS"
	StateClanBattleIntro GameState = "CLAN_BATTLE_INTRO"
	StateQuestionIntro   GameState = "QUESTION_INTRO"
	StateQuestionActive  GameState = "QUESTION_ACTIVE"
	StateQuestionResult  GameState = "QUESTION_RESULT"
	StateLeaderboard     GameState = "LEADERBOARD"
	StateFinished        GameState = "FINISHED"
)

// Clan is one of the two fixed teams a player may belong to.
type Clan string

const (
	ClanTitans    Clan = "TITANS"
	ClanDefenders Clan = "DEFENDERS"
)

// Clans lists both teams in a fixed order (TITANS is the default on ties).
var Clans = [2]Clan{ClanTitans, ClanDefenders}

// ClanAssignment selects how joining players get a clan.
type ClanAssignment string

const (
	AssignManual      ClanAssignment = "manual"
	AssignAutoBalance ClanAssignment = "autoBalance"
)

// Lifeline identifies a player-activated modifier.
type Lifeline string

const (
	LifelineFiftyFifty   Lifeline = "fiftyFifty"
	LifelinePointDoubler Lifeline = "pointDoubler"
)

// QuestionKind tags the closed set of question variants.
type QuestionKind string

const (
	KindMCQ       QuestionKind = "MCQ"
	KindSurvey    QuestionKind = "SURVEY"
	KindWordCloud QuestionKind = "WORD_CLOUD"
	KindMatch     QuestionKind = "MATCH"
)

// MCQOptionCount is fixed at authoring time; the generator and the bank
// both enforce it.
const MCQOptionCount = 4

// MaxQuestionsPerQuiz caps the session's question sequence.
const MaxQuestionsPerQuiz = 10

// QuizConfig carries per-session presentation and team settings.
type QuizConfig struct {
	ShowLiveResponseCount bool            `json:"showLiveResponseCount"`
	ShowQuestionToPlayers bool            `json:"showQuestionToPlayers"`
	ClanBased             bool            `json:"clanBased"`
	ClanNames             map[Clan]string `json:"clanNames,omitempty"`
	ClanAssignment        ClanAssignment  `json:"clanAssignment,omitempty"`
}

// ClanDisplayName resolves the configured display name with a fallback to the
// clan identifier itself.
func (c QuizConfig) ClanDisplayName(clan Clan) string {
	if name, ok := c.ClanNames[clan]; ok && name != "" {
		return name
	}
	switch clan {
	case ClanTitans:
		return "Titans"
	case ClanDefenders:
		return "Defenders"
	}
	return string(clan)
}

// Quiz is one run of the game: a session identified by its join code and
// owned by one host. Mutated only by the host client after creation.
type Quiz struct {
	ID                   string     `json:"id"` // join code
	Title                string     `json:"title"`
	Questions            []Question `json:"questions"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	GameState            GameState  `json:"gameState"`
	QuestionStartTime    *time.Time `json:"questionStartTime,omitempty"`
	Config               QuizConfig `json:"config"`
	HostID               string     `json:"hostId"`
	CreatedAt            time.Time  `json:"createdAt"`
	EndTime              *time.Time `json:"endTime,omitempty"`
	ParticipantCount     int        `json:"participantCount,omitempty"`
}

// CurrentQuestion returns the active question, or false when the index is out
// of range (e.g. an empty session).
func (q Quiz) CurrentQuestion() (Question, bool) {
	if q.CurrentQuestionIndex < 0 || q.CurrentQuestionIndex >= len(q.Questions) {
		return Question{}, false
	}
	return q.Questions[q.CurrentQuestionIndex], true
}

// OnLastQuestion reports whether the session is at its final question.
func (q Quiz) OnLastQuestion() bool {
	return q.CurrentQuestionIndex == len(q.Questions)-1
}

// LifelineInventory counts unused lifeline units a player holds.
type LifelineInventory struct {
	PointDoubler int `json:"pointDoubler"`
}

// Player is one participant's record. Mutated only by that player's client,
// via signed increments and answer appends; read by everyone.
type Player struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Avatar         string            `json:"avatar"`
	Clan           Clan              `json:"clan,omitempty"`
	Score          int               `json:"score"`
	Answers        []Answer          `json:"answers"`
	Lifelines      LifelineInventory `json:"lifelines"`
	CorrectStreak  int               `json:"correctStreak"`
	FiftyFiftyUses int               `json:"fiftyFiftyUses"`
}

// AnswerFor returns this player's answer to the given question, if any.
// At most one answer per question ever exists.
func (p Player) AnswerFor(questionID string) (Answer, bool) {
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// HasAnswered reports whether the player already answered the question.
func (p Player) HasAnswered(questionID string) bool {
	_, ok := p.AnswerFor(questionID)
	return ok
}

// Answer is one immutable submission.
type Answer struct {
	QuestionID   string        `json:"questionId"`
	Payload      AnswerPayload `json:"answer"`
	TimeTaken    float64       `json:"timeTaken"` // seconds
	Score        int           `json:"score"`
	LifelineUsed Lifeline      `json:"lifelineUsed,omitempty"`
}

// MatchPair is one prompt and its correct target in a MATCH question.
type MatchPair struct {
	Prompt       string `json:"prompt"`
	CorrectMatch string `json:"correctMatch"`
}

// Question is the tagged-variant schema shared by all four kinds. The common
// fields live here; the variant payload is the sealed Detail.
type Question struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	TimeLimit     int            `json:"timeLimit"` // seconds
	Technology    string         `json:"technology,omitempty"`
	Skill         string         `json:"skill,omitempty"`
	OrganizerName string         `json:"organizerName,omitempty"`
	Detail        QuestionDetail `json:"-"`
}

// Kind returns the variant tag, or "" for a zero Question.
func (q Question) Kind() QuestionKind {
	if q.Detail == nil {
		return ""
	}
	return q.Detail.kind()
}

// Validate checks the authoring-time invariants that never change during a
// session: option counts and correct-index bounds.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question %q: %w: empty text", q.ID, ErrInvalidQuestion)
	}
	if q.TimeLimit <= 0 {
		return fmt.Errorf("question %q: %w: non-positive time limit", q.ID, ErrInvalidQuestion)
	}
	switch d := q.Detail.(type) {
	case MCQDetail:
		if len(d.Options) != MCQOptionCount {
			return fmt.Errorf("question %q: %w: MCQ needs %d options, got %d", q.ID, ErrInvalidQuestion, MCQOptionCount, len(d.Options))
		}
		if d.CorrectIndex < 0 || d.CorrectIndex >= len(d.Options) {
			return fmt.Errorf("question %q: %w: correct index %d out of range", q.ID, ErrInvalidQuestion, d.CorrectIndex)
		}
	case SurveyDetail:
		if len(d.Options) == 0 {
			return fmt.Errorf("question %q: %w: survey needs options", q.ID, ErrInvalidQuestion)
		}
	case WordCloudDetail:
		// nothing beyond the common fields
	case MatchDetail:
		if len(d.Pairs) == 0 {
			return fmt.Errorf("question %q: %w: match needs pairs", q.ID, ErrInvalidQuestion)
		}
		if len(d.OptionPool) < len(d.Pairs) {
			return fmt.Errorf("question %q: %w: option pool smaller than pair count", q.ID, ErrInvalidQuestion)
		}
	default:
		return fmt.Errorf("question %q: %w: missing variant detail", q.ID, ErrInvalidQuestion)
	}
	return nil
}

// QuestionDetail is the sealed variant payload. Only the four types below
// implement it, so switches over it cover the whole closed set.
type QuestionDetail interface {
	kind() QuestionKind
}

// MCQDetail carries four options and the correct one.
type MCQDetail struct {
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctAnswerIndex"`
}

// SurveyDetail carries options with no correctness notion.
type SurveyDetail struct {
	Options []string `json:"options"`
}

// WordCloudDetail collects free text; it has no payload of its own.
type WordCloudDetail struct{}

// MatchDetail pairs prompts with targets drawn from a shuffled pool.
type MatchDetail struct {
	Pairs      []MatchPair `json:"matchPairs"`
	OptionPool []string    `json:"options"`
}

func (MCQDetail) kind() QuestionKind       { return KindMCQ }
func (SurveyDetail) kind() QuestionKind    { return KindSurvey }
func (WordCloudDetail) kind() QuestionKind { return KindWordCloud }
func (MatchDetail) kind() QuestionKind     { return KindMatch }

// questionEnvelope is the wire form: common fields plus the variant payload
// flattened under a type tag, matching what the store and the bank persist.
type questionEnvelope struct {
	ID            string       `json:"id"`
	Type          QuestionKind `json:"type"`
	Text          string       `json:"text"`
	TimeLimit     int          `json:"timeLimit"`
	Technology    string       `json:"technology,omitempty"`
	Skill         string       `json:"skill,omitempty"`
	OrganizerName string       `json:"organizerName,omitempty"`
	Options       []string     `json:"options,omitempty"`
	CorrectIndex  *int         `json:"correctAnswerIndex,omitempty"`
	MatchPairs    []MatchPair  `json:"matchPairs,omitempty"`
}

// MarshalJSON renders the tagged envelope.
func (q Question) MarshalJSON() ([]byte, error) {
	env := questionEnvelope{
		ID:            q.ID,
		Type:          q.Kind(),
		Text:          q.Text,
		TimeLimit:     q.TimeLimit,
		Technology:    q.Technology,
		Skill:         q.Skill,
		OrganizerName: q.OrganizerName,
	}
	switch d := q.Detail.(type) {
	case MCQDetail:
		env.Options = d.Options
		idx := d.CorrectIndex
		env.CorrectIndex = &idx
	case SurveyDetail:
		env.Options = d.Options
	case WordCloudDetail:
	case MatchDetail:
		env.MatchPairs = d.Pairs
		env.Options = d.OptionPool
	}
	return json.Marshal(env)
}

// UnmarshalJSON restores the variant from the tagged envelope.
func (q *Question) UnmarshalJSON(data []byte) error {
	var env questionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	q.ID = env.ID
	q.Text = env.Text
	q.TimeLimit = env.TimeLimit
	q.Technology = env.Technology
	q.Skill = env.Skill
	q.OrganizerName = env.OrganizerName
	switch env.Type {
	case KindMCQ:
		idx := 0
		if env.CorrectIndex != nil {
			idx = *env.CorrectIndex
		}
		q.Detail = MCQDetail{Options: env.Options, CorrectIndex: idx}
	case KindSurvey:
		q.Detail = SurveyDetail{Options: env.Options}
	case KindWordCloud:
		q.Detail = WordCloudDetail{}
	case KindMatch:
		q.Detail = MatchDetail{Pairs: env.MatchPairs, OptionPool: env.Options}
	default:
		return fmt.Errorf("question %q: %w: unknown type %q", env.ID, ErrInvalidQuestion, env.Type)
	}
	return nil
}

// AnswerPayload is the sealed submission variant: an option index for
// MCQ/SURVEY, free text for WORD_CLOUD, per-prompt option indices for MATCH.
type AnswerPayload interface {
	payload()
}

// OptionAnswer selects one option by index.
type OptionAnswer int

// TextAnswer is a free-text word-cloud response.
type TextAnswer string

// MatchAnswer lists the chosen pool index per prompt position;
// UnansweredPosition marks prompts the player left blank.
type MatchAnswer []int

// UnansweredPosition is the sentinel for a skipped MATCH prompt.
const UnansweredPosition = -1

func (OptionAnswer) payload() {}
func (TextAnswer) payload()   {}
func (MatchAnswer) payload()  {}

type answerEnvelope struct {
	QuestionID   string   `json:"questionId"`
	Kind         string   `json:"kind"`
	Option       *int     `json:"option,omitempty"`
	Text         *string  `json:"text,omitempty"`
	Matches      []int    `json:"matches,omitempty"`
	TimeTaken    float64  `json:"timeTaken"`
	Score        int      `json:"score"`
	LifelineUsed Lifeline `json:"lifelineUsed,omitempty"`
}

// MarshalJSON renders the tagged answer envelope.
func (a Answer) MarshalJSON() ([]byte, error) {
	env := answerEnvelope{
		QuestionID:   a.QuestionID,
		TimeTaken:    a.TimeTaken,
		Score:        a.Score,
		LifelineUsed: a.LifelineUsed,
	}
	switch p := a.Payload.(type) {
	case OptionAnswer:
		env.Kind = "option"
		v := int(p)
		env.Option = &v
	case TextAnswer:
		env.Kind = "text"
		v := string(p)
		env.Text = &v
	case MatchAnswer:
		env.Kind = "matches"
		env.Matches = []int(p)
	default:
		return nil, fmt.Errorf("answer for %q: %w: missing payload", a.QuestionID, ErrInvalidAnswer)
	}
	return json.Marshal(env)
}

// UnmarshalJSON restores the payload variant from the tagged envelope.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var env answerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	a.QuestionID = env.QuestionID
	a.TimeTaken = env.TimeTaken
	a.Score = env.Score
	a.LifelineUsed = env.LifelineUsed
	switch env.Kind {
	case "option":
		if env.Option == nil {
			return fmt.Errorf("answer for %q: %w: option missing", env.QuestionID, ErrInvalidAnswer)
		}
		a.Payload = OptionAnswer(*env.Option)
	case "text":
		if env.Text == nil {
			return fmt.Errorf("answer for %q: %w: text missing", env.QuestionID, ErrInvalidAnswer)
		}
		a.Payload = TextAnswer(*env.Text)
	case "matches":
		a.Payload = MatchAnswer(env.Matches)
	default:
		return fmt.Errorf("answer for %q: %w: unknown kind %q", env.QuestionID, ErrInvalidAnswer, env.Kind)
	}
	return nil
}
