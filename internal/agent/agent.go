package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/i474232898/weather-tracker-client/internal/common"
)

const (
	// NoAnswer is shown when the backend replies without an answer.
	NoAnswer = "Pas de réponse."
	// Unreachable is the reason shown when the agent could not be contacted.
	Unreachable = "Impossible de contacter l'agent."
)

// ErrBusy is returned when a question is sent while another is in flight.
var ErrBusy = errors.New("a question is already in flight")

// Role identifies who authored a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

type backend interface {
	Post(ctx context.Context, path string, body, out any) error
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer *string `json:"answer"`
}

// Channel forwards free-text questions to the backend agent.
type Channel struct {
	api backend
}

// NewChannel creates a new Channel.
func NewChannel(api backend) *Channel {
	return &Channel{api: api}
}

// Ask sends a question and returns the agent's answer. Blank questions are
// rejected without a request. A reply without an answer yields NoAnswer.
func (c *Channel) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is empty", common.ErrInvalidInput)
	}

	var res askResponse
	if err := c.api.Post(ctx, "/agent/ask", askRequest{Question: question}, &res); err != nil {
		if errors.Is(err, common.ErrMalformedPayload) {
			return NoAnswer, nil
		}
		return "", fmt.Errorf("ask agent: %w", err)
	}
	if res.Answer == nil || strings.TrimSpace(*res.Answer) == "" {
		return NoAnswer, nil
	}
	return *res.Answer, nil
}

// Conversation is an in-memory transcript of questions and answers with one
// question in flight at a time.
type Conversation struct {
	ID string

	channel *Channel
	busy    atomic.Bool

	mu       sync.RWMutex
	messages []Message
	now      func() time.Time
}

// NewConversation starts an empty transcript on channel.
func NewConversation(channel *Channel) *Conversation {
	return &Conversation{
		ID:      uuid.NewString(),
		channel: channel,
		now:     time.Now,
	}
}

// Send asks question and records the exchange. It appends the user message
// and then exactly one assistant message, which carries the answer or an
// "Erreur : ..." line when the request failed. Only local rejections
// (blank question, another question in flight) are returned as errors, and
// those leave the transcript untouched.
func (c *Conversation) Send(ctx context.Context, question string) ([]Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return c.Messages(), fmt.Errorf("%w: question is empty", common.ErrInvalidInput)
	}
	if !c.busy.CAS(false, true) {
		return c.Messages(), ErrBusy
	}
	defer c.busy.Store(false)

	c.append(RoleUser, question)

	answer, err := c.channel.Ask(ctx, question)
	if err != nil {
		log.Printf("INFO: conversation %s: %v", c.ID, err)
		answer = "Erreur : " + failureReason(err)
	}
	c.append(RoleAssistant, answer)

	return c.Messages(), nil
}

// Busy reports whether a question is in flight.
func (c *Conversation) Busy() bool {
	return c.busy.Load()
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) append(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: role, Content: content, SentAt: c.now()})
}

func failureReason(err error) string {
	if errors.Is(err, common.ErrTransportFailure) {
		return Unreachable
	}
	return common.Reason(err)
}
