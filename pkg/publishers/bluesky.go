package publishers

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

const blueskyPostCollection = "app.bsky.feed.post"

var linkPattern = regexp.MustCompile(`https?://[^\s]+`)

// blueskyPublisher creates app.bsky.feed.post records. The session is
// opened on first use and reused for the rest of the process.
type blueskyPublisher struct {
	id         string
	host       string
	identifier string
	password   string
	langs      []string
	log        Logger
	now        func() time.Time

	mu     sync.Mutex
	client *xrpc.Client
}

func newBlueskyPublisher(_ context.Context, cfg PublisherConfig, deps Deps) (Publisher, error) {
	if cfg.Bluesky == nil {
		return nil, configErr("publisher %q missing bluesky configuration", cfg.ID)
	}

	handle, err := lookupSecret(deps, cfg.Bluesky.HandleEnv)
	if err != nil {
		return nil, err
	}
	password, err := lookupSecret(deps, cfg.Bluesky.PasswordEnv)
	if err != nil {
		return nil, err
	}

	var langs []string
	if cfg.Bluesky.Lang != "" {
		langs = []string{cfg.Bluesky.Lang}
	}

	return &blueskyPublisher{
		id:         cfg.ID,
		host:       cfg.Bluesky.Host,
		identifier: handle,
		password:   password,
		langs:      langs,
		log:        ensureLogger(deps.Log),
		now:        time.Now,
	}, nil
}

func (b *blueskyPublisher) ID() string   { return b.id }
func (b *blueskyPublisher) Type() string { return TypeBluesky }

// Publish creates the post, replying to p.Thread when set and embedding
// p.MediaPath as an image. The receipt carries the record's at-uri and cid.
func (b *blueskyPublisher) Publish(ctx context.Context, p domain.Payload) (domain.Receipt, error) {
	client, err := b.session(ctx)
	if err != nil {
		return domain.Receipt{}, err
	}

	post := &appbsky.FeedPost{
		Text:      p.Text,
		CreatedAt: b.now().UTC().Format(time.RFC3339),
		Facets:    linkFacets(p.Text),
		Langs:     b.langs,
	}
	if t := p.Thread; t != nil && t.Parent.ID != "" {
		root := t.Root
		if root.ID == "" {
			root = t.Parent
		}
		post.Reply = &appbsky.FeedPost_ReplyRef{
			Root:   &comatproto.RepoStrongRef{Uri: root.ID, Cid: root.CID},
			Parent: &comatproto.RepoStrongRef{Uri: t.Parent.ID, Cid: t.Parent.CID},
		}
	}

	if p.MediaPath != "" {
		embed, err := b.uploadImage(ctx, client, p)
		if err != nil {
			b.dropSession()
			return domain.Receipt{}, err
		}
		post.Embed = embed
	}

	resp, err := comatproto.RepoCreateRecord(ctx, client, &comatproto.RepoCreateRecord_Input{
		Collection: blueskyPostCollection,
		Repo:       client.Auth.Did,
		Record:     &util.LexiconTypeDecoder{Val: post},
	})
	if err != nil {
		b.log.ErrorObj("bluesky create record failed", "publisher_bluesky_error", map[string]any{
			"publisher_id": b.id,
			"natural_key":  p.Item.NaturalKey,
			"error":        err.Error(),
		})
		b.dropSession()
		return domain.Receipt{}, fmt.Errorf("create bluesky post: %w", err)
	}
	return domain.Receipt{ID: resp.Uri, CID: resp.Cid}, nil
}

// uploadImage stores the media file as a blob and returns the images embed
// that references it. The item title doubles as alt text.
func (b *blueskyPublisher) uploadImage(ctx context.Context, client *xrpc.Client, p domain.Payload) (*appbsky.FeedPost_Embed, error) {
	f, err := os.Open(p.MediaPath)
	if err != nil {
		return nil, fmt.Errorf("open bluesky media: %w", err)
	}
	defer f.Close()

	out, err := comatproto.RepoUploadBlob(ctx, client, f)
	if err != nil {
		b.log.ErrorObj("bluesky upload blob failed", "publisher_bluesky_error", map[string]any{
			"publisher_id": b.id,
			"natural_key":  p.Item.NaturalKey,
			"media_path":   p.MediaPath,
			"error":        err.Error(),
		})
		return nil, fmt.Errorf("upload bluesky media: %w", err)
	}
	if out.Blob == nil {
		return nil, fmt.Errorf("upload bluesky media: response has no blob")
	}

	return &appbsky.FeedPost_Embed{
		EmbedImages: &appbsky.EmbedImages{
			Images: []*appbsky.EmbedImages_Image{{Alt: p.Item.DisplayTitle, Image: out.Blob}},
		},
	}, nil
}

func (b *blueskyPublisher) session(ctx context.Context) (*xrpc.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}

	client := &xrpc.Client{Host: b.host}
	sess, err := comatproto.ServerCreateSession(ctx, client, &comatproto.ServerCreateSession_Input{
		Identifier: b.identifier,
		Password:   b.password,
	})
	if err != nil {
		return nil, fmt.Errorf("create bluesky session with %s: %w", b.host, err)
	}
	client.Auth = &xrpc.AuthInfo{
		AccessJwt:  sess.AccessJwt,
		RefreshJwt: sess.RefreshJwt,
		Handle:     sess.Handle,
		Did:        sess.Did,
	}
	b.client = client
	return client, nil
}

// dropSession forces a fresh login on the next publish, which recovers from
// expired access tokens.
func (b *blueskyPublisher) dropSession() {
	b.mu.Lock()
	b.client = nil
	b.mu.Unlock()
}

// linkFacets marks URLs in text as links; offsets are byte based.
func linkFacets(text string) []*appbsky.RichtextFacet {
	matches := linkPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	facets := make([]*appbsky.RichtextFacet, 0, len(matches))
	for _, m := range matches {
		facets = append(facets, &appbsky.RichtextFacet{
			Index: &appbsky.RichtextFacet_ByteSlice{ByteStart: int64(m[0]), ByteEnd: int64(m[1])},
			Features: []*appbsky.RichtextFacet_Features_Elem{
				{RichtextFacet_Link: &appbsky.RichtextFacet_Link{Uri: text[m[0]:m[1]]}},
			},
		})
	}
	return facets
}
