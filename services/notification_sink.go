package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"journal-workflow-api/config"
	"journal-workflow-api/models"
	"journal-workflow-api/utils"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NotificationSink receives workflow events after the transition that caused
// them has committed. A failing sink never undoes the transition.
type NotificationSink interface {
	Emit(ctx context.Context, event models.WorkflowEvent) error
}

var ErrSinkQueueFull = errors.New("notification queue full")

// LogSink writes every event to the application log.
type LogSink struct{}

func (LogSink) Emit(ctx context.Context, event models.WorkflowEvent) error {
	log.Printf("workflow event %s manuscript=%s actor=%s assignment=%s decision=%s",
		event.Type, event.ManuscriptID, event.ActorID, event.AssignmentID, event.DecisionID)
	return nil
}

// MultiSink fans an event out to several sinks and joins their errors.
type MultiSink []NotificationSink

func (m MultiSink) Emit(ctx context.Context, event models.WorkflowEvent) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncSink queues events for a background worker so slow delivery (SMTP,
// network) never holds a manuscript lock. Events are dropped when the queue is full.
type AsyncSink struct {
	inner   NotificationSink
	queue   chan models.WorkflowEvent
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewAsyncSink(inner NotificationSink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &AsyncSink{
		inner: inner,
		queue: make(chan models.WorkflowEvent, buffer),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer s.wg.Done()
	for event := range s.queue {
		ctx, cancel := deliveryContext(context.Background())
		err := s.inner.Emit(ctx, event)
		cancel()
		if err != nil {
			log.Printf("notification delivery failed (type=%s manuscript=%s): %v",
				event.Type, event.ManuscriptID, err)
		}
	}
}

func (s *AsyncSink) Emit(ctx context.Context, event models.WorkflowEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("notification queue closed")
	}
	select {
	case s.queue <- event:
		return nil
	default:
		s.dropped.Add(1)
		return ErrSinkQueueFull
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (s *AsyncSink) Dropped() int64 { return s.dropped.Load() }

// Close stops accepting events and waits for queued ones to be delivered.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// redisPublisher is the subset of *redis.Client used by RedisSink.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes events as JSON on a pub/sub channel.
type RedisSink struct {
	client  redisPublisher
	channel string
}

func NewRedisSink(client redisPublisher, channel string) *RedisSink {
	if channel == "" {
		channel = "journal:workflow-events"
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Emit(ctx context.Context, event models.WorkflowEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, s.channel, err)
	}
	return nil
}

// Directory resolves user ids to e-mail recipients.
type Directory interface {
	Lookup(ctx context.Context, userIDs []string) ([]models.User, error)
}

// GormUserDirectory reads the users table.
type GormUserDirectory struct {
	db *gorm.DB
}

func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	if db == nil {
		db = config.DB
	}
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) Lookup(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := d.db.WithContext(ctx).
		Where("user_id IN ? AND delete_at IS NULL", userIDs).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("lookup users: %w", err)
	}
	return users, nil
}

type mailSender interface {
	SendMail(to []string, subject, html string) error
}

// MailSink e-mails the recipients named on each event.
type MailSink struct {
	sender    mailSender
	directory Directory
	journal   string
}

func NewMailSink(sender mailSender, directory Directory, journalName string) *MailSink {
	return &MailSink{sender: sender, directory: directory, journal: journalName}
}

func (s *MailSink) Emit(ctx context.Context, event models.WorkflowEvent) error {
	if len(event.Recipients) == 0 {
		return nil
	}
	users, err := s.directory.Lookup(ctx, event.Recipients)
	if err != nil {
		return err
	}

	var errs []error
	for _, user := range users {
		if strings.TrimSpace(user.Email) == "" {
			continue
		}
		subject, body := eventMessage(s.journal, event)
		html, err := renderEventMail(s.journal, user.DisplayName, subject, body, event)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.sender.SendMail([]string{user.Email}, subject, html); err != nil {
			errs = append(errs, fmt.Errorf("mail %s to %s: %w", event.Type, user.UserID, err))
		}
	}
	return errors.Join(errs...)
}

func eventMessage(journal string, event models.WorkflowEvent) (string, string) {
	title := event.Title
	if title == "" {
		title = event.ManuscriptID
	}
	when := utils.FormatDisplayDate(event.Timestamp)

	var subject, body string
	switch event.Type {
	case models.EventManuscriptSubmitted:
		subject = "Manuscript received"
		body = fmt.Sprintf("Your manuscript %q was received on %s and is awaiting editorial assessment.", title, when)
	case models.EventManuscriptResubmitted:
		subject = "Revised manuscript received"
		body = fmt.Sprintf("The revised version of %q was received on %s and has returned to review.", title, when)
	case models.EventReviewerAssigned:
		subject = "Invitation to review"
		body = fmt.Sprintf("You have been invited to review %q. %s", title, event.Detail)
	case models.EventAssignmentAccepted, models.EventAssignmentDeclined:
		subject = "Reviewer response"
		body = fmt.Sprintf("A reviewer responded to the invitation for %q: %s.", title, event.Detail)
	case models.EventAssignmentWithdrawn:
		subject = "Review invitation withdrawn"
		body = fmt.Sprintf("The invitation to review %q has been withdrawn.", title)
	case models.EventReviewSubmitted:
		subject = "Review submitted"
		body = fmt.Sprintf("A review for %q was submitted on %s.", title, when)
	case models.EventDecisionMade, models.EventRevisionRequested:
		subject = "Editorial decision"
		body = fmt.Sprintf("An editorial decision was made on %q: %s.", title, utils.RecommendationLabel(event.Detail))
	case models.EventManuscriptPublished:
		subject = "Article published"
		body = fmt.Sprintf("%q was published on %s. %s", title, when, event.Detail)
	default:
		subject = "Manuscript update"
		body = fmt.Sprintf("%q was updated (%s).", title, event.Type)
	}
	if journal != "" {
		subject = journal + ": " + subject
	}
	return subject, body
}

var eventMailTemplate = template.Must(template.New("event-mail").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Georgia,'Times New Roman',serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
  <p style="margin:0 0 12px 0;font-size:13px;letter-spacing:0.08em;text-transform:uppercase;color:#4b5563;">{{.Journal}}</p>
  <div style="background-color:#ffffff;border-top:3px solid #1f3a5f;padding:24px;">
    <p style="margin:0 0 16px 0;font-size:16px;color:#111827;">Dear {{.Recipient}},</p>
    <p style="margin:0 0 16px 0;font-size:16px;line-height:1.6;color:#111827;">{{.Message}}</p>
    {{- if .Title}}
    <p style="margin:0 0 16px 0;font-size:14px;color:#374151;">Manuscript: <em>{{.Title}}</em> ({{.ManuscriptID}})</p>
    {{- end}}
    <p style="margin:24px 0 0 0;font-size:15px;color:#111827;">Editorial Office<br>{{.Journal}}</p>
  </div>
  <p style="margin:12px 0 0 0;font-size:12px;color:#6b7280;">This message was sent because of activity on a manuscript you are involved with.</p>
</div>
</body>
</html>`))

type eventMailData struct {
	Subject      string
	Journal      string
	Recipient    string
	Message      string
	Title        string
	ManuscriptID string
}

// renderEventMail produces the HTML body sent to one recipient of event.
func renderEventMail(journal, recipientName, subject, message string, event models.WorkflowEvent) (string, error) {
	name := strings.TrimSpace(recipientName)
	if name == "" {
		name = "colleague"
	}
	if strings.TrimSpace(journal) == "" {
		journal = "Editorial Office"
	}

	var buf bytes.Buffer
	err := eventMailTemplate.Execute(&buf, eventMailData{
		Subject:      subject,
		Journal:      journal,
		Recipient:    name,
		Message:      strings.TrimSpace(message),
		Title:        event.Title,
		ManuscriptID: event.ManuscriptID,
	})
	if err != nil {
		return "", fmt.Errorf("render %s mail: %w", event.Type, err)
	}
	return buf.String(), nil
}
