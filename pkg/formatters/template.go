package formatters

import (
	"context"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

// Rand is the subset of *rand.Rand the template formatter needs.
type Rand interface {
	IntN(n int) int
	Perm(n int) []int
}

var (
	defaultIntros = []string{
		"🚨 New Remote Job Alert! 🌐",
		"💼 Fresh opening just dropped",
		"👀 Now hiring",
		"🔥 Hot off the job boards",
		"🌍 Work from anywhere",
	}
	defaultHashtags = []string{
		"#RemoteJob", "#JobAlert", "#RemoteWork", "#Hiring",
		"#TechJobs", "#WorkFromHome", "#Careers", "#NowHiring",
	}
)

const hashtagsPerPost = 3

// Template formats posts from a random intro, the title, optional company,
// the link and three random hashtags.
type Template struct {
	intros   []string
	hashtags []string
	maxRunes int
	rnd      Rand
}

// NewTemplate builds a template formatter; empty pools fall back to defaults.
func NewTemplate(opts Options) *Template {
	t := &Template{
		intros:   opts.Intros,
		hashtags: opts.Hashtags,
		maxRunes: opts.MaxRunes,
		rnd:      opts.Rand,
	}
	if len(t.intros) == 0 {
		t.intros = defaultIntros
	}
	if len(t.hashtags) == 0 {
		t.hashtags = defaultHashtags
	}
	if t.maxRunes <= 0 {
		t.maxRunes = DefaultMaxRunes
	}
	if t.rnd == nil {
		t.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return t
}

// Format implements Formatter.
func (t *Template) Format(_ context.Context, item domain.CandidateItem) (domain.Payload, error) {
	title := strings.TrimSpace(item.DisplayTitle)
	if title == "" {
		return domain.Payload{}, formatErr("item %s has no title", item.NaturalKey)
	}
	media, err := itemMedia(item)
	if err != nil {
		return domain.Payload{}, err
	}
	link := itemLink(item)

	intro := t.intros[t.rnd.IntN(len(t.intros))]
	tags := t.pickHashtags()
	company := strings.TrimSpace(item.Attribute(domain.AttrCompany))

	text := t.render(intro, title, company, link, tags)
	if over := utf8.RuneCountInString(text) - t.maxRunes; over > 0 {
		keep := utf8.RuneCountInString(title) - over
		if keep >= 8 {
			text = t.render(intro, truncate(title, keep), company, link, tags)
		}
	}
	text = truncate(text, t.maxRunes)

	return domain.Payload{Item: item, Text: text, MediaPath: media}, nil
}

func (t *Template) render(intro, title, company, link, tags string) string {
	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\n")
	b.WriteString(title)
	if company != "" {
		b.WriteString("\n🏢 ")
		b.WriteString(company)
	}
	b.WriteString("\n\n🔗 ")
	b.WriteString(link)
	if tags != "" {
		b.WriteString("\n\n")
		b.WriteString(tags)
	}
	return b.String()
}

func (t *Template) pickHashtags() string {
	n := min(hashtagsPerPost, len(t.hashtags))
	perm := t.rnd.Perm(len(t.hashtags))
	picked := make([]string, 0, n)
	for _, i := range perm[:n] {
		picked = append(picked, t.hashtags[i])
	}
	return strings.Join(picked, " ")
}
