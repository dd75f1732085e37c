// Package audit, kimlik doğrulama olaylarının kaydını tutar.
//
// Sink yazma-only bir arayüzdür: Record hata dönmez, kayıt başarısız olsa
// bile isteğin sonucu değişmez. Hatalar sink'in kendi logger'ına yazılır.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType, audit olayının türü.
type EventType string

const (
	EventRegister       EventType = "register"
	EventLogin          EventType = "login"
	EventRefresh        EventType = "refresh"
	EventLogout         EventType = "logout"
	EventPasswordChange EventType = "password_change"
	EventSessionsRevoke EventType = "sessions_revoke"
	EventAuthenticate   EventType = "authenticate"
	EventAuthorize      EventType = "authorize"
	EventSweep          EventType = "sweep"
)

// Event, tek bir audit kaydı.
type Event struct {
	Type      EventType         `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	URL       string            `json:"url,omitempty"`
	Role      string            `json:"role,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Sink, audit olaylarının yazıldığı yer.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// NopSink, hiçbir şey yazmaz.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) {}

// LogSink, olayları logrus üzerinden yapılandırılmış alanlar olarak yazar.
// Başarısız olaylar Warn, başarılılar Info seviyesindedir.
type LogSink struct {
	log logrus.FieldLogger
}

// NewLogSink, LogSink oluşturur.
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{log: logger.WithField("component", "audit")}
}

func (s *LogSink) Record(_ context.Context, e Event) {
	fields := logrus.Fields{
		"event":   string(e.Type),
		"success": e.Success,
	}
	for k, v := range map[string]string{
		"user_id":    e.UserID,
		"reason":     e.Reason,
		"ip":         e.IP,
		"user_agent": e.UserAgent,
		"url":        e.URL,
		"role":       e.Role,
	} {
		if v != "" {
			fields[k] = v
		}
	}
	for k, v := range e.Metadata {
		fields["meta_"+k] = v
	}

	entry := s.log.WithFields(fields)
	if e.Success {
		entry.Infof("[audit] %s", e.Type)
	} else {
		entry.Warnf("[audit] %s failed", e.Type)
	}
}

// DBSink, olayları audit_events tablosuna yazar.
type DBSink struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// NewDBSink, DBSink oluşturur. logger insert hataları içindir.
func NewDBSink(db *sql.DB, logger logrus.FieldLogger) *DBSink {
	return &DBSink{db: db, log: logger.WithField("component", "audit")}
}

func (s *DBSink) Record(ctx context.Context, e Event) {
	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			meta = b
		}
	}

	// İstek iptal edilmiş olsa da kayıt yazılsın.
	ctx = context.WithoutCancel(ctx)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (event_type, user_id, success, reason, ip, user_agent, url, role, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Type), e.UserID, e.Success, e.Reason, e.IP, e.UserAgent, e.URL, e.Role, string(meta), e.Timestamp.Unix(),
	)
	if err != nil {
		s.log.WithError(err).WithField("event", string(e.Type)).Error("[audit] failed to persist event")
	}
}

// MultiSink, olayı sırayla tüm sink'lere iletir.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, e Event) {
	for _, s := range m {
		s.Record(ctx, e)
	}
}

// New, AUDIT_STORE değerine göre sink kurar: "log", "db" veya "both".
func New(store string, db *sql.DB, logger logrus.FieldLogger) Sink {
	switch store {
	case "db":
		return NewDBSink(db, logger)
	case "both":
		return MultiSink{NewLogSink(logger), NewDBSink(db, logger)}
	default:
		return NewLogSink(logger)
	}
}
