package publishers

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

type stubPublisher struct {
	id       string
	typ      string
	err      error
	receipt  domain.Receipt
	calls    int
	payloads []domain.Payload
	closed   bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(_ context.Context, p domain.Payload) (domain.Receipt, error) {
	s.calls++
	s.payloads = append(s.payloads, p)
	return s.receipt, s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func threadedPayload() domain.Payload {
	return domain.Payload{
		Item:   domain.CandidateItem{NaturalKey: "k1"},
		Text:   "hello",
		Thread: &domain.ThreadRef{Parent: domain.Receipt{ID: "at://root"}},
	}
}

func TestFanoutReturnsPrimaryReceiptAndIgnoresMirrorFailures(t *testing.T) {
	primary := &stubPublisher{id: "bsky", typ: TypeBluesky, receipt: domain.Receipt{ID: "at://post/1", CID: "cid1"}}
	okMirror := &stubPublisher{id: "ok", typ: TypeHTTP, receipt: domain.Receipt{ID: "m1"}}
	badMirror := &stubPublisher{id: "bad", typ: TypeHTTP, err: stderrors.New("failed")}

	fanout := NewFanout(primary, []Publisher{okMirror, nil, badMirror}, nil)
	if fanout.Size() != 3 {
		t.Fatalf("expected 3 publishers, got %d", fanout.Size())
	}

	receipt, err := fanout.Publish(context.Background(), threadedPayload())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if receipt.ID != "at://post/1" || receipt.CID != "cid1" {
		t.Fatalf("unexpected receipt %#v", receipt)
	}
	if okMirror.calls != 1 || badMirror.calls != 1 {
		t.Fatalf("mirrors should each be called once")
	}
	if primary.payloads[0].Thread == nil {
		t.Fatalf("primary must receive the thread reference")
	}
	if okMirror.payloads[0].Thread != nil {
		t.Fatalf("mirrors must not receive the primary's thread reference")
	}
	if fanout.ID() != "bsky" || fanout.Type() != TypeFanout {
		t.Fatalf("unexpected identity %s/%s", fanout.ID(), fanout.Type())
	}
}

func TestFanoutPrimaryFailureIsPublishError(t *testing.T) {
	primary := &stubPublisher{id: "bsky", typ: TypeBluesky, err: stderrors.New("rate limited")}
	mirror := &stubPublisher{id: "m", typ: TypeHTTP, receipt: domain.Receipt{ID: "m1"}}

	_, err := NewFanout(primary, []Publisher{mirror}, nil).Publish(context.Background(), threadedPayload())
	if !errors.Is(err, errors.ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	if mirror.calls != 0 {
		t.Fatalf("mirrors must not post when the primary fails")
	}
}

func TestFanoutRejectsEmptyReceipt(t *testing.T) {
	primary := &stubPublisher{id: "p", typ: TypeHTTP}
	if _, err := NewFanout(primary, nil, nil).Publish(context.Background(), threadedPayload()); !errors.Is(err, errors.ErrPublish) {
		t.Fatalf("expected ErrPublish for empty receipt, got %v", err)
	}

	var nilFanout *Fanout
	if _, err := nilFanout.Publish(context.Background(), threadedPayload()); err == nil {
		t.Fatalf("expected error from nil fanout")
	}
}

func TestFanoutCloseClosesPublishers(t *testing.T) {
	primary := &stubPublisher{id: "p"}
	mirror := &stubPublisher{id: "m"}
	if err := NewFanout(primary, []Publisher{mirror}, nil).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !primary.closed || !mirror.closed {
		t.Fatalf("expected all publishers closed")
	}
}
