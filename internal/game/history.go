package game

import (
	"sort"
	"time"

	"github.com/AaronLay10/QuestBox/internal/events"
)

// DefaultHistoryLimit is the number of stored events read for history.
const DefaultHistoryLimit = 1000

// PathSummary is the last known state of a path within a session.
type PathSummary struct {
	Name  string    `json:"path_name"`
	State PathState `json:"state"`
}

// Session is a quest run rebuilt from stored events. Outcome is empty while
// the run has no recorded end.
type Session struct {
	SessionID string        `json:"session_id"`
	QuestID   string        `json:"quest_id"`
	Title     string        `json:"title,omitempty"`
	Started   time.Time     `json:"started"`
	Ended     time.Time     `json:"ended,omitempty"`
	Outcome   Outcome       `json:"outcome,omitempty"`
	Paths     []PathSummary `json:"paths,omitempty"`
}

// LoadHistory reads recent events from r and folds them into sessions.
// A nil reader yields no history.
func LoadHistory(r events.Reader, limit int) ([]Session, error) {
	if r == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	records, err := r.Query(limit)
	if err != nil {
		return nil, err
	}
	return Summarize(records), nil
}

// Summarize folds records, given newest first as stores return them, into
// sessions ordered newest first. Records without a session id are ignored.
func Summarize(records []events.Record) []Session {
	byID := make(map[string]*Session)

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		id := rec.SessionID
		if id == "" {
			id, _ = rec.Fields["session_id"].(string)
		}
		if id == "" {
			continue
		}

		s, ok := byID[id]
		if !ok {
			s = &Session{SessionID: id, Started: rec.Timestamp}
			byID[id] = s
		}
		if q, ok := rec.Fields["quest"].(string); ok && s.QuestID == "" {
			s.QuestID = q
		}
		pathName, _ := rec.Fields["path"].(string)

		switch rec.Event {
		case "quest.started":
			s.Started = rec.Timestamp
			s.Title, _ = rec.Fields["title"].(string)
		case "path.started":
			s.setPath(pathName, PathNarrating)
		case "path.succeeded":
			s.setPath(pathName, PathSucceeded)
		case "path.failed":
			s.setPath(pathName, PathFailed)
		case "path.timed_out":
			s.setPath(pathName, PathTimedOut)
		case "quest.won":
			s.end(OutcomeWon, rec.Timestamp)
		case "quest.lost":
			s.end(OutcomeLost, rec.Timestamp)
		case "quest.aborted":
			s.end(OutcomeAborted, rec.Timestamp)
		}
	}

	out := make([]Session, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.After(out[j].Started) })
	return out
}

func (s *Session) setPath(name string, state PathState) {
	if name == "" {
		return
	}
	for i := range s.Paths {
		if s.Paths[i].Name == name {
			s.Paths[i].State = state
			return
		}
	}
	s.Paths = append(s.Paths, PathSummary{Name: name, State: state})
}

func (s *Session) end(o Outcome, at time.Time) {
	s.Outcome = o
	s.Ended = at
}
