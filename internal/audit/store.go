package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bcharris9/th-26/internal/voice"
	"github.com/google/uuid"
)

// Entry is one persisted turn trace.
type Entry struct {
	ID            string      `json:"id"`
	SessionID     string      `json:"sessionId"`
	Transcript    string      `json:"transcript"`
	AssistantText string      `json:"assistantText"`
	Trace         voice.Trace `json:"judge"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Store implements voice.TraceSink over SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a trace store. now is injectable for tests; nil means
// time.Now.
func NewStore(db *sql.DB, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}
}

// Record persists one completed turn.
func (s *Store) Record(ctx context.Context, sessionID string, result voice.TurnResult) error {
	args, err := json.Marshal(result.Trace.Args)
	if err != nil {
		return fmt.Errorf("encoding trace args: %w", err)
	}
	reasons, err := json.Marshal(reasonsOrEmpty(result.Trace.Reasons))
	if err != nil {
		return fmt.Errorf("encoding trace reasons: %w", err)
	}

	query := `INSERT INTO turn_traces (
		id, session_id, transcript, assistant_text, tool, args, executed,
		risk_level, risk_score, reasons, requires_confirmation,
		confirmation_state, outcome, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		"trace_"+uuid.NewString(),
		sessionID,
		result.Transcript,
		result.AssistantText,
		result.Trace.Tool,
		string(args),
		boolToInt(result.Trace.Executed),
		result.Trace.RiskLevel,
		result.Trace.RiskScore,
		string(reasons),
		boolToInt(result.Trace.RequiresConfirmation),
		result.Trace.ConfirmationState,
		result.Trace.Outcome,
		s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting turn trace: %w", err)
	}
	return nil
}

// ListBySession returns a session's traces in turn order.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]Entry, error) {
	query := `SELECT id, session_id, transcript, assistant_text, tool, args, executed,
		risk_level, risk_score, reasons, requires_confirmation,
		confirmation_state, outcome, created_at
		FROM turn_traces WHERE session_id = ? ORDER BY created_at, rowid`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing traces by session: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListRecent returns the newest traces across all sessions, most recent
// first, capped at limit.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, session_id, transcript, assistant_text, tool, args, executed,
		risk_level, risk_score, reasons, requires_confirmation,
		confirmation_state, outcome, created_at
		FROM turn_traces ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent traces: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var argsStr, reasonsStr, createdAtStr string
		var executed, requiresConfirmation int

		err := rows.Scan(
			&e.ID, &e.SessionID, &e.Transcript, &e.AssistantText,
			&e.Trace.Tool, &argsStr, &executed,
			&e.Trace.RiskLevel, &e.Trace.RiskScore, &reasonsStr,
			&requiresConfirmation, &e.Trace.ConfirmationState,
			&e.Trace.Outcome, &createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning trace row: %w", err)
		}

		if err := json.Unmarshal([]byte(argsStr), &e.Trace.Args); err != nil {
			return nil, fmt.Errorf("decoding trace args: %w", err)
		}
		if err := json.Unmarshal([]byte(reasonsStr), &e.Trace.Reasons); err != nil {
			return nil, fmt.Errorf("decoding trace reasons: %w", err)
		}
		e.Trace.Executed = executed != 0
		e.Trace.RequiresConfirmation = requiresConfirmation != 0
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating traces: %w", err)
	}
	return entries, nil
}

func reasonsOrEmpty(reasons []string) []string {
	if reasons == nil {
		return []string{}
	}
	return reasons
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
