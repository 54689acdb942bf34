// Package chat keeps one message log per screen in the record store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-des/internal/recordstore"
	"github.com/i474232898/weather-des/internal/screen"
)

var ErrEmptyMessage = errors.New("message is empty")

var messageExample = recordstore.Record{
	"ID PK":    uuid.Nil.String(),
	"PersonID": "A_LOOONG_NAME" + strings.Repeat("X", 50),
	"Message":  "A_LOOONG_CHAT_ENTRY" + strings.Repeat("X", 255),
	"Time":     1234567890.123456,
}

// Message is one chat entry. Time is seconds since the Unix epoch.
type Message struct {
	ID       string  `json:"id"`
	PersonID string  `json:"personId"`
	Message  string  `json:"message"`
	Time     float64 `json:"time"`
}

// At converts Time to a time.Time in loc.
func (m Message) At(loc *time.Location) time.Time {
	sec := int64(m.Time)
	nsec := int64((m.Time - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).In(loc)
}

func (m Message) record() recordstore.Record {
	return recordstore.Record{
		"ID":       m.ID,
		"PersonID": m.PersonID,
		"Message":  m.Message,
		"Time":     m.Time,
	}
}

func messageFromRecord(r recordstore.Record) Message {
	t, _ := r.Float("Time")
	return Message{
		ID:       r.String("ID"),
		PersonID: r.String("PersonID"),
		Message:  r.String("Message"),
		Time:     t,
	}
}

type Service struct {
	store    recordstore.Store
	logger   *zap.Logger
	now      func() time.Time
	location *time.Location
}

// NewService returns a chat service rendering transcripts in local time.
func NewService(store recordstore.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		logger:   logger,
		now:      time.Now,
		location: time.Local,
	}
}

// WithClock replaces the clock and the zone used by Transcript.
func (s *Service) WithClock(now func() time.Time, loc *time.Location) *Service {
	s.now = now
	s.location = loc
	return s
}

// Send appends a message from user to the screen's log.
func (s *Service) Send(ctx context.Context, id screen.ID, user, text string) (Message, error) {
	if !id.Valid() {
		return Message{}, fmt.Errorf("unknown screen %q", id)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	table := id.ChatTable()
	if err := s.store.Create(ctx, table, messageExample); err != nil {
		return Message{}, fmt.Errorf("create %s: %w", table, err)
	}

	now := s.now()
	msg := Message{
		ID:       uuid.NewString(),
		PersonID: user,
		Message:  text,
		Time:     float64(now.UnixNano()) / 1e9,
	}
	if err := s.store.Put(ctx, table, msg.record()); err != nil {
		return Message{}, fmt.Errorf("store chat message: %w", err)
	}

	s.logger.Debug("chat message stored",
		zap.String("screen", string(id)),
		zap.String("user", user),
	)
	return msg, nil
}

// History returns the screen's messages oldest first. A screen nobody has
// written to yet has an empty history.
func (s *Service) History(ctx context.Context, id screen.ID) ([]Message, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("unknown screen %q", id)
	}

	rows, err := s.store.All(ctx, id.ChatTable())
	if errors.Is(err, recordstore.ErrNoData) || errors.Is(err, recordstore.ErrNoTable) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id.ChatTable(), err)
	}

	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, messageFromRecord(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// Transcript renders msgs one "[HH:MM:SS] user: message" line each.
func (s *Service) Transcript(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.At(s.location).Format("15:04:05"), m.PersonID, m.Message)
	}
	return b.String()
}
