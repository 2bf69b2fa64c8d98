package domain

import "time"

// Domain contains the items that flow from sources to publishers and the
// records kept once they are posted.

// CandidateItem is a freshly scraped item eligible for posting.
// NaturalKey is the dedup identity (a canonical URL).
type CandidateItem struct {
	NaturalKey   string            `json:"naturalKey"`
	DisplayTitle string            `json:"displayTitle"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Attribute returns the attribute value for key, or "" when absent.
func (c CandidateItem) Attribute(key string) string {
	if c.Attributes == nil {
		return ""
	}
	return c.Attributes[key]
}

// PostedRecord is the append-only audit entry written after a successful publish.
type PostedRecord struct {
	NaturalKey   string    `json:"naturalKey"`
	PostedAt     time.Time `json:"postedAt"`
	PublishedID  string    `json:"publishedId"`
	DisplayTitle string    `json:"displayTitle"`
}

// Receipt identifies a published post on the platform.
type Receipt struct {
	ID string `json:"id"`
	// CID is the content hash some platforms require to reference a post in a reply.
	CID string `json:"cid,omitempty"`
}

// ThreadRef points a post at the chain it replies to.
type ThreadRef struct {
	Root   Receipt `json:"root"`
	Parent Receipt `json:"parent"`
}

// Payload is ready-to-publish content for one candidate.
type Payload struct {
	Item      CandidateItem `json:"item"`
	Text      string        `json:"text"`
	MediaPath string        `json:"media_path,omitempty"` // image to attach, from the media attribute
	Thread    *ThreadRef    `json:"thread,omitempty"`
}

// Well-known candidate attribute keys.
const (
	AttrCompany = "company"
	AttrSource  = "source"
	AttrLink    = "link"
	// AttrMedia is a local image file posted alongside the text.
	AttrMedia = "media"
)
