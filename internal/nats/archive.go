package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
)

const (
	// StreamName is the name of the conversation archive stream.
	StreamName = "CONVERSATIONS"

	// SubjectPrefix is the prefix for all archive subjects.
	SubjectPrefix = "conv"
)

// Archive persists every message appended to a session into a JetStream
// stream for offline audit and replay. The live conversation state stays in
// the session registry; the archive is write-only from the gateway's point
// of view.
type Archive struct {
	client *Client
}

// NewArchive creates an archive over the given client.
func NewArchive(client *Client) *Archive {
	return &Archive{client: client}
}

// EnsureStream ensures the archive stream exists with proper configuration.
func (a *Archive) EnsureStream(ctx context.Context) error {
	js := a.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Archived conversation messages",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for one archived message.
func MessageSubject(owner string, sessionID int64, role model.Role) string {
	return fmt.Sprintf("%s.%s.%d.%s", SubjectPrefix, subjectToken(owner), sessionID, role)
}

// ArchiveMessage publishes one message to the archive stream.
func (a *Archive) ArchiveMessage(ctx context.Context, owner string, sessionID int64, msg *model.Message) (uint64, error) {
	subject := MessageSubject(owner, sessionID, msg.Role)

	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	ack, err := a.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish message: %w", err)
	}

	return ack.Sequence, nil
}

// subjectToken makes an opaque owner identifier safe for use as one NATS
// subject token.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>':
			return '_'
		}
		return r
	}, s)
}
