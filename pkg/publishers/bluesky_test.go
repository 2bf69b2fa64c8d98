package publishers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

type mapSecrets map[string]string

func (m mapSecrets) Lookup(key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", errors.Mark(errors.Newf("secret %s is not set", key), errors.ErrConfig)
}

const testBlobCID = "bafkreihyahokiegi6kt2fuwlve7tiwamolsvbbi6rrp6w7v6tni65r2qay"

// fakePDS implements the XRPC calls the publisher makes.
type fakePDS struct {
	mu       sync.Mutex
	sessions int
	records  []map[string]any
	uploads  []string
}

func (f *fakePDS) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/xrpc/com.atproto.server.createSession":
			f.sessions++
			_, _ = w.Write([]byte(`{"accessJwt":"access","refreshJwt":"refresh","handle":"poster.bsky.social","did":"did:plc:poster"}`))
		case "/xrpc/com.atproto.repo.createRecord":
			if got := r.Header.Get("Authorization"); got != "Bearer access" {
				t.Errorf("unexpected authorization %q", got)
			}
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.records = append(f.records, body)
			n := len(f.records)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"uri": "at://did:plc:poster/app.bsky.feed.post/" + string(rune('0'+n)),
				"cid": "cid" + string(rune('0'+n)),
			})
		case "/xrpc/com.atproto.repo.uploadBlob":
			body, _ := io.ReadAll(r.Body)
			f.uploads = append(f.uploads, string(body))
			_, _ = w.Write([]byte(`{"blob":{"$type":"blob","ref":{"$link":"` + testBlobCID + `"},"mimeType":"image/png","size":` +
				strconv.Itoa(len(body)) + `}}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestBluesky(t *testing.T, pds *fakePDS) Publisher {
	t.Helper()
	srv := httptest.NewServer(pds.handler(t))
	t.Cleanup(srv.Close)

	cfg := sanitizePublisherConfig(PublisherConfig{ID: "bsky", Type: TypeBluesky, Bluesky: &BlueskyPublisherConfig{Host: srv.URL}})
	pub, err := newBlueskyPublisher(context.Background(), cfg, Deps{Secrets: mapSecrets{
		blueskyDefaultHandleEnv:   "poster.bsky.social",
		blueskyDefaultPasswordEnv: "app-password",
	}})
	if err != nil {
		t.Fatalf("newBlueskyPublisher: %v", err)
	}
	return pub
}

func TestBlueskyPublisherCreatesPostAndReply(t *testing.T) {
	pds := &fakePDS{}
	pub := newTestBluesky(t, pds)

	first, err := pub.Publish(context.Background(), domain.Payload{Text: "New job https://example.com/jobs/1"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if first.ID != "at://did:plc:poster/app.bsky.feed.post/1" || first.CID != "cid1" {
		t.Fatalf("unexpected receipt %#v", first)
	}

	_, err = pub.Publish(context.Background(), domain.Payload{
		Text:   "Another job",
		Thread: &domain.ThreadRef{Root: first, Parent: first},
	})
	if err != nil {
		t.Fatalf("Publish reply: %v", err)
	}

	if pds.sessions != 1 {
		t.Fatalf("expected one session for both posts, got %d", pds.sessions)
	}
	if len(pds.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(pds.records))
	}

	rec := pds.records[0]
	if rec["collection"] != blueskyPostCollection || rec["repo"] != "did:plc:poster" {
		t.Fatalf("unexpected create record input %#v", rec)
	}
	post := rec["record"].(map[string]any)
	if post["text"] != "New job https://example.com/jobs/1" {
		t.Fatalf("unexpected text %#v", post["text"])
	}
	if facets, _ := post["facets"].([]any); len(facets) != 1 {
		t.Fatalf("expected one link facet, got %#v", post["facets"])
	}

	reply := pds.records[1]["record"].(map[string]any)["reply"].(map[string]any)
	parent := reply["parent"].(map[string]any)
	if parent["uri"] != first.ID || parent["cid"] != first.CID {
		t.Fatalf("reply parent mismatch %#v", parent)
	}
}

func TestBlueskyPublisherRequiresCredentials(t *testing.T) {
	cfg := sanitizePublisherConfig(PublisherConfig{ID: "bsky", Type: TypeBluesky})
	_, err := newBlueskyPublisher(context.Background(), cfg, Deps{Secrets: mapSecrets{}})
	if !errors.Is(err, errors.ErrConfig) {
		t.Fatalf("expected ErrConfig for missing credentials, got %v", err)
	}
}

func TestLinkFacetsUseByteOffsets(t *testing.T) {
	text := "🚨 Job https://example.com/x done"
	facets := linkFacets(text)
	if len(facets) != 1 {
		t.Fatalf("expected 1 facet, got %d", len(facets))
	}
	start := strings.Index(text, "https://")
	if facets[0].Index.ByteStart != int64(start) || facets[0].Index.ByteEnd != int64(start+len("https://example.com/x")) {
		t.Fatalf("unexpected facet range %d-%d", facets[0].Index.ByteStart, facets[0].Index.ByteEnd)
	}
	if linkFacets("no links here") != nil {
		t.Fatalf("expected no facets")
	}
}

func TestBlueskyPublisherEmbedsMedia(t *testing.T) {
	image := filepath.Join(t.TempDir(), "meme.png")
	if err := os.WriteFile(image, []byte("fake png bytes"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	pds := &fakePDS{}
	pub := newTestBluesky(t, pds)

	_, err := pub.Publish(context.Background(), domain.Payload{
		Item:      domain.CandidateItem{NaturalKey: "https://example.com/memes/1", DisplayTitle: "Monday mood"},
		Text:      "Monday mood",
		MediaPath: image,
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(pds.uploads) != 1 || pds.uploads[0] != "fake png bytes" {
		t.Fatalf("unexpected uploads %#v", pds.uploads)
	}
	embed, ok := pds.records[0]["record"].(map[string]any)["embed"].(map[string]any)
	if !ok {
		t.Fatalf("expected an embed, got %#v", pds.records[0]["record"])
	}
	if embed["$type"] != "app.bsky.embed.images" {
		t.Fatalf("unexpected embed type %#v", embed["$type"])
	}
	img := embed["images"].([]any)[0].(map[string]any)
	if img["alt"] != "Monday mood" {
		t.Fatalf("unexpected alt %#v", img["alt"])
	}
	ref := img["image"].(map[string]any)["ref"].(map[string]any)
	if ref["$link"] != testBlobCID {
		t.Fatalf("unexpected blob ref %#v", ref)
	}
}

func TestBlueskyPublisherMissingMediaFails(t *testing.T) {
	pds := &fakePDS{}
	pub := newTestBluesky(t, pds)

	_, err := pub.Publish(context.Background(), domain.Payload{Text: "x", MediaPath: filepath.Join(t.TempDir(), "gone.png")})
	if err == nil {
		t.Fatalf("expected an error for a missing media file")
	}
	if len(pds.records) != 0 {
		t.Fatalf("no record must be created, got %d", len(pds.records))
	}
}
