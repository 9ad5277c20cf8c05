package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"google.golang.org/genai"

	"github.com/KetonAI/backend/internal/relay"
)

// stream pulls responses from a GenerateContentStream sequence. The first
// response is fetched by prime and handed out by the first Recv.
type stream struct {
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel context.CancelFunc

	first     *genai.GenerateContentResponse
	responses int

	closeOnce sync.Once
}

func newStream(seq iter.Seq2[*genai.GenerateContentResponse, error], cancel context.CancelFunc) *stream {
	next, stop := iter.Pull2(seq)
	return &stream{next: next, stop: stop, cancel: cancel}
}

func (s *stream) prime() error {
	resp, err := s.pull()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	s.first = resp
	return nil
}

// Recv returns the text of the next response. Thought parts are not part
// of the text, and responses without text yield an empty fragment.
func (s *stream) Recv() (relay.Fragment, error) {
	resp := s.first
	s.first = nil
	if resp == nil {
		var err error
		if resp, err = s.pull(); err != nil {
			return relay.Fragment{}, err
		}
	}
	return relay.Fragment{Text: resp.Text()}, nil
}

func (s *stream) pull() (*genai.GenerateContentResponse, error) {
	resp, err, ok := s.next()
	if !ok {
		return nil, io.EOF
	}
	s.responses++
	if err != nil {
		return nil, fmt.Errorf("response %d: %w", s.responses, fromSDK(err))
	}
	if resp == nil {
		return &genai.GenerateContentResponse{}, nil
	}
	if len(resp.Candidates) == 0 && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrPromptBlocked, resp.PromptFeedback.BlockReason)
	}
	return resp, nil
}

// Close cancels the call and releases the sequence. It is safe to call
// more than once.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.stop()
	})
	return nil
}
