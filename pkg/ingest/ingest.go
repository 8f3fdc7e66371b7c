// Package ingest resolves an input argument into estimation text. An
// argument is stdin ("-"), a local file, or an http(s) URL; HTML inputs go
// through article extraction so navigation chrome and markup never reach
// the tokenizer.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/text/unicode/norm"
)

const (
	// StdinSource names stdin-originated input in run records.
	StdinSource = "stdin"

	userAgent     = "textiq/1.0"
	fetchTimeout  = 30 * time.Second
	maxFetchBytes = 8 << 20
)

// Input is resolved estimation text plus its provenance.
type Input struct {
	Source string // file path or URL as given, stdin normalized to "stdin"
	Text   string
	HTML   bool // true when article extraction ran
}

// Resolver turns CLI input arguments into estimation text.
type Resolver struct {
	client *http.Client
	stdin  io.Reader
	log    *slog.Logger
}

func NewResolver(log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		client: &http.Client{Timeout: fetchTimeout},
		stdin:  os.Stdin,
		log:    log,
	}
}

// Resolve reads the argument's content. "-" reads stdin to EOF, http(s)
// arguments are fetched from the network, anything else is a local file.
// Every source is NFKC-normalized before it is returned.
func (r *Resolver) Resolve(ctx context.Context, arg string) (*Input, error) {
	switch {
	case arg == "-":
		raw, err := io.ReadAll(r.stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return &Input{Source: StdinSource, Text: Clean(string(raw))}, nil
	case IsURL(arg):
		return r.fetch(ctx, arg)
	default:
		return r.readFile(arg)
	}
}

// IsURL reports whether the argument should be fetched from the network.
func IsURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func (r *Resolver) readFile(path string) (*Input, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	in := &Input{Source: path}
	if isHTMLPath(path) {
		text, err := ExtractArticle(string(raw), "")
		if err != nil {
			return nil, fmt.Errorf("failed to extract article from %s: %w", path, err)
		}
		in.Text = Clean(text)
		in.HTML = true
		return in, nil
	}

	in.Text = Clean(string(raw))
	return in, nil
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) (*Input, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s, status code: %d", rawURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	r.log.Debug("fetched input", "url", rawURL, "bytes", len(raw), "content_type", resp.Header.Get("Content-Type"))

	in := &Input{Source: rawURL}
	if isHTMLContentType(resp.Header.Get("Content-Type")) || isHTMLPath(req.URL.Path) {
		text, err := ExtractArticle(string(raw), rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to extract article from %s: %w", rawURL, err)
		}
		in.Text = Clean(text)
		in.HTML = true
		return in, nil
	}

	in.Text = Clean(string(raw))
	return in, nil
}

// ExtractArticle pulls the main article text out of an HTML document.
// go-readability identifies the content; when it comes back empty the
// densest text container wins instead.
func ExtractArticle(html, sourceURL string) (string, error) {
	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		pageURL = &url.URL{}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, nil
	}

	return fallbackExtract(html)
}

// fallbackExtract scores each container element by the text of its direct
// block children and keeps the densest one. Scoring direct children only
// stops outer wrapper divs from absorbing navigation text.
func fallbackExtract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script,style,noscript,template").Remove()

	best := ""
	doc.Find("article,main,section,div,body").Each(func(_ int, s *goquery.Selection) {
		var b strings.Builder
		s.ChildrenFiltered("h1,h2,h3,h4,p,ul,ol,blockquote,pre").Each(func(_ int, el *goquery.Selection) {
			if line := joinLines(el.Text()); line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
		})
		if b.Len() > len(best) {
			best = b.String()
		}
	})

	if strings.TrimSpace(best) == "" {
		best = doc.Text()
	}
	return best, nil
}

// joinLines collapses a multi-line string into one space-separated line.
func joinLines(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(line)
	}
	return b.String()
}

// Clean normalizes text so tokenization sees consistent input: NFKC
// folding, control characters dropped except newline and tab, CRLF
// unified.
func Clean(text string) string {
	text = norm.NFKC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}

func isHTMLPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".html") ||
		strings.HasSuffix(lower, ".htm") ||
		strings.HasSuffix(lower, ".xhtml")
}

func isHTMLContentType(header string) bool {
	if header == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
