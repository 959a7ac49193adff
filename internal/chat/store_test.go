package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/evcraddock/house-market/internal/apperr"
)

type fakeAssistant struct {
	reply string
	err   error
	asked []string
}

func (f *fakeAssistant) Ask(ctx context.Context, message string) (string, error) {
	f.asked = append(f.asked, message)
	return f.reply, f.err
}

func TestSend(t *testing.T) {
	a := &fakeAssistant{reply: "Try Pune."}
	s := NewStore(a)

	reply, err := s.Send(context.Background(), "  where should I rent?  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply != "Try Pune." {
		t.Errorf("reply = %q", reply)
	}

	msgs := s.Messages()
	want := []Message{
		{Sender: FromUser, Text: "where should I rent?"},
		{Sender: FromBot, Text: "Try Pune."},
	}
	if len(msgs) != len(want) {
		t.Fatalf("messages = %+v", msgs)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("messages[%d] = %+v, want %+v", i, msgs[i], want[i])
		}
	}
}

func TestSendEmpty(t *testing.T) {
	a := &fakeAssistant{}
	s := NewStore(a)

	if _, err := s.Send(context.Background(), "   "); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
	if len(a.asked) != 0 || len(s.Messages()) != 0 {
		t.Error("empty message was sent")
	}
}

func TestSendFailureKeepsUserMessage(t *testing.T) {
	a := &fakeAssistant{err: apperr.Network(errors.New("offline"))}
	s := NewStore(a)

	if _, err := s.Send(context.Background(), "hello"); !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("err = %v, want network", err)
	}
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Sender != FromUser {
		t.Errorf("messages = %+v", msgs)
	}
	if s.Err() == "" || s.Loading() {
		t.Errorf("err = %q, loading = %v", s.Err(), s.Loading())
	}
}

func TestClear(t *testing.T) {
	s := NewStore(&fakeAssistant{reply: "hi"})
	if _, err := s.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	s.Clear()
	if len(s.Messages()) != 0 {
		t.Error("conversation not cleared")
	}
}
